package eio

import "time"

const (
	ProtocolVersion = 4

	defaultPath           = "/engine.io/"
	defaultUpgradeTimeout = time.Second * 10
)
