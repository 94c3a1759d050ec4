// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries viewer sessions to and from the gateway.
//
// The package defines two interfaces: [Listener] accepts inbound viewer
// connections (Serve, Address, Close), and [Dialer] establishes outbound
// connections to a gateway (DialContext). Both hand the session to its
// owner as a plain net.Conn; the session protocol on top of the
// connection lives in the protocol package and never leaks in here.
//
// [TCPListener] and [TCPDialer] are the development and same-LAN
// transport: a raw TCP stream, one connection per viewer.
//
// [WebRTCListener] and [WebRTCDialer] carry sessions over pion/webrtc
// data channels for viewers that cannot reach the gateway directly
// (browsers, NAT-ed networks). The gateway is always the answering
// side: it serves a small HTTP signaling endpoint where a viewer POSTs
// a complete SDP offer and receives a complete SDP answer in the
// response. Signaling uses vanilla ICE, so all candidates are gathered
// before either description is exchanged and the whole exchange is a
// single HTTP round-trip. Each viewer gets its own PeerConnection with
// one ordered, reliable data channel; [DataChannelConn] wraps the
// detached channel as a net.Conn with deadline support, and closing the
// session tears down the PeerConnection beneath it.
//
// [ICEConfig] holds STUN/TURN server configuration; [ICEConfigFromURLs]
// builds one from the plain URL list in the gateway config. An empty
// config gathers host candidates only, which is sufficient for
// same-machine and same-LAN use.
package transport
