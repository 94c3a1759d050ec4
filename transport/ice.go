// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "github.com/pion/webrtc/v4"

// ICEConfig holds ICE server configuration for WebRTC PeerConnections.
type ICEConfig struct {
	// Servers is the list of ICE servers (STUN + TURN) to use during
	// candidate gathering. Order matters: pion tries them in sequence.
	Servers []webrtc.ICEServer
}

// ICEConfigFromURLs builds an ICEConfig from plain STUN/TURN URLs as
// they appear in the gateway config (e.g., "stun:stun.example.org:3478").
// An empty list yields a config with only host candidates, sufficient
// for same-machine and same-LAN use. Credentialed TURN is not handled
// here; operators that need it populate Servers directly.
func ICEConfigFromURLs(urls []string) ICEConfig {
	if len(urls) == 0 {
		return ICEConfig{}
	}
	return ICEConfig{
		Servers: []webrtc.ICEServer{
			{URLs: urls},
		},
	}
}
