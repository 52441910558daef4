package server

import "time"

const (
	ProtocolVersion = 1

	writeWait = 10 * time.Second

	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)
