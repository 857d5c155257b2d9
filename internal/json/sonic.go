//go:build eio_sonic && amd64 && (linux || windows || darwin)

package json

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

var (
	Marshal   = sonic.ConfigStd.Marshal
	Unmarshal = sonic.ConfigStd.Unmarshal

	// sonic has no indented marshal; fall back to the standard library.
	MarshalIndent = json.MarshalIndent

	NewDecoder = sonic.ConfigStd.NewDecoder
	NewEncoder = sonic.ConfigStd.NewEncoder
)
