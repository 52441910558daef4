package server

// Wire message shapes for the server→client direction. Payloads are JSON
// with stable field names; clients key off the type discriminator.

type connectedMessage struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

type roomCreatedMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Code string `json:"code"`
}

type roomJoinedMessage struct {
	Ver   int                   `json:"ver"`
	Type  string                `json:"type"`
	Code  string                `json:"code"`
	Cells map[string]*CellState `json:"cells"`
}

type roomErrorMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type cellUpdatedMessage struct {
	Ver         int       `json:"ver"`
	Type        string    `json:"type"`
	Room        string    `json:"room"`
	CellID      string    `json:"cellId"`
	Delta       CellDelta `json:"delta"`
	LastUpdated int64     `json:"lastUpdated"`
}

type chatBroadcastMessage struct {
	Ver       int    `json:"ver"`
	Type      string `json:"type"`
	Room      string `json:"room"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type memberEventMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Room string `json:"room"`
	ID   string `json:"id"`
}

const (
	msgConnected   = "connected"
	msgRoomCreated = "room_created"
	msgRoomJoined  = "room_joined"
	msgRoomError   = "room_error"
	msgCellUpdated = "cell_updated"
	msgChat        = "chat"
	msgUserJoined  = "user_joined"
	msgUserLeft    = "user_left"
)
