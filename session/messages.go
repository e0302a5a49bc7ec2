package session

// Client-to-server message types.
const (
	MsgCLogin     uint16 = 0x0001
	MsgCLogout    uint16 = 0x0002
	MsgCKeepAlive uint16 = 0x0003
	MsgCMove      uint16 = 0x0010
	MsgCWarp      uint16 = 0x0011
	MsgCTakeSpawn uint16 = 0x0012
	MsgCChat      uint16 = 0x0020
)

// Server-to-client message types.
const (
	MsgSLoginResult  uint16 = 0x8001
	MsgSKeepAlive    uint16 = 0x8003
	MsgSPlayerMoved  uint16 = 0x8010
	MsgSWarped       uint16 = 0x8011
	MsgSSpawnResult  uint16 = 0x8012
	MsgSPlayerJoined uint16 = 0x8020
	MsgSPlayerLeft   uint16 = 0x8021
	MsgSChat         uint16 = 0x8022
	MsgSKicked       uint16 = 0x80FF
)

// Login result codes carried by MsgSLoginResult.
const (
	LoginOK            uint8 = 0
	LoginBadCredential uint8 = 1
	LoginAlreadyAuthed uint8 = 2
)

// Spawn result codes carried by MsgSSpawnResult.
const (
	SpawnTaken       uint8 = 0
	SpawnUnavailable uint8 = 1
)
