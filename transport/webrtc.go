// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
)

// Compile-time interface checks.
var (
	_ Listener = (*WebRTCListener)(nil)
	_ Dialer   = (*WebRTCDialer)(nil)
)

// iceGatherTimeout is the maximum time to wait for ICE candidate
// gathering to complete before the SDP is exchanged.
const iceGatherTimeout = 15 * time.Second

// dataChannelOpenTimeout is the maximum time the dial side waits for
// its data channel to open after the answer is applied.
const dataChannelOpenTimeout = 10 * time.Second

// signalingTimeout bounds the HTTP signaling exchange on both sides. It
// must exceed iceGatherTimeout because the gateway gathers candidates
// while the viewer's request is pending.
const signalingTimeout = 30 * time.Second

// sessionChannelLabel is the data channel label viewers open for the
// session stream.
const sessionChannelLabel = "session"

// maxSignalBody bounds the size of an SDP description exchanged during
// signaling.
const maxSignalBody = 1 << 20

// SignalRequest is the JSON body a viewer POSTs to the signaling
// endpoint: a complete SDP offer with all ICE candidates included
// (vanilla ICE).
type SignalRequest struct {
	SDP string `json:"sdp"`
}

// SignalResponse is the gateway's JSON reply: a complete SDP answer,
// likewise with all candidates included.
type SignalResponse struct {
	SDP string `json:"sdp"`
}

// WebRTCListener accepts viewer sessions over pion/webrtc data
// channels. The listener serves a single HTTP signaling endpoint,
// POST /offer; each viewer that signals gets its own PeerConnection,
// and the data channel it opens becomes the session connection handed
// to the session handler. The gateway never dials out: it is always the
// answering side, so signaling completes in one HTTP round-trip and
// needs no state between requests.
type WebRTCListener struct {
	httpListener net.Listener
	iceConfig    ICEConfig
	logger       *slog.Logger

	// peers tracks live PeerConnections so Close can tear them down.
	// Entries remove themselves when ICE reaches the Closed state.
	mu    sync.Mutex
	peers map[*webrtc.PeerConnection]struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

// NewWebRTCListener creates a WebRTC session listener whose signaling
// endpoint binds to the specified TCP address. Use ":0" for a random
// available port.
func NewWebRTCListener(address string, iceConfig ICEConfig, logger *slog.Logger) (*WebRTCListener, error) {
	httpListener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &WebRTCListener{
		httpListener: httpListener,
		iceConfig:    iceConfig,
		logger:       logger,
		peers:        make(map[*webrtc.PeerConnection]struct{}),
		closed:       make(chan struct{}),
	}, nil
}

// Serve runs the signaling endpoint and dispatches each established
// session to handle in its own goroutine. Blocks until ctx is cancelled
// or Close is called.
func (l *WebRTCListener) Serve(ctx context.Context, handle SessionHandler) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /offer", func(w http.ResponseWriter, r *http.Request) {
		l.handleOffer(ctx, w, r, handle)
	})

	server := &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// The response waits for ICE gathering, so the write timeout
		// must cover iceGatherTimeout.
		WriteTimeout: signalingTimeout,
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-l.closed:
		}
		server.Close()
	}()

	err := server.Serve(l.httpListener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Address returns the signaling address in "host:port" format. Viewers
// derive the offer URL from it with [OfferURL].
func (l *WebRTCListener) Address() string {
	return l.httpListener.Addr().String()
}

// Close shuts down the signaling endpoint and tears down all live
// PeerConnections, which terminates their sessions.
func (l *WebRTCListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
	})

	l.mu.Lock()
	for pc := range l.peers {
		pc.Close()
		delete(l.peers, pc)
	}
	l.mu.Unlock()

	return l.httpListener.Close()
}

// handleOffer services one POST /offer exchange.
func (l *WebRTCListener) handleOffer(ctx context.Context, w http.ResponseWriter, r *http.Request, handle SessionHandler) {
	var request SignalRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSignalBody))
	if err := decoder.Decode(&request); err != nil || request.SDP == "" {
		http.Error(w, "malformed signaling request", http.StatusBadRequest)
		return
	}

	answerSDP, err := l.answer(ctx, r.Context(), request.SDP, r.RemoteAddr, handle)
	if err != nil {
		l.logger.Error("answering viewer offer failed",
			"viewer", r.RemoteAddr,
			"error", err,
		)
		http.Error(w, "signaling failed", http.StatusInternalServerError)
		return
	}

	l.logger.Info("viewer offer answered", "viewer", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(SignalResponse{SDP: answerSDP}); err != nil {
		l.logger.Warn("writing signaling response failed",
			"viewer", r.RemoteAddr,
			"error", err,
		)
	}
}

// answer creates a PeerConnection for one viewer, applies its offer,
// and returns the complete SDP answer once ICE gathering finishes.
// serveCtx outlives the HTTP exchange and governs the session handler;
// requestCtx bounds the signaling work itself.
func (l *WebRTCListener) answer(serveCtx, requestCtx context.Context, offerSDP, viewer string, handle SessionHandler) (string, error) {
	pc, err := newPeerConnection(l.iceConfig)
	if err != nil {
		return "", fmt.Errorf("creating PeerConnection: %w", err)
	}
	l.trackPeer(pc)

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		l.acceptChannel(serveCtx, pc, dc, viewer, handle)
	})
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		l.handleICEStateChange(pc, viewer, state)
	})

	remoteOffer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}
	if err := pc.SetRemoteDescription(remoteOffer); err != nil {
		l.dropPeer(pc)
		return "", fmt.Errorf("setting remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		l.dropPeer(pc)
		return "", fmt.Errorf("creating SDP answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		l.dropPeer(pc)
		return "", fmt.Errorf("setting local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		l.dropPeer(pc)
		return "", fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	case <-requestCtx.Done():
		l.dropPeer(pc)
		return "", requestCtx.Err()
	case <-l.closed:
		l.dropPeer(pc)
		return "", net.ErrClosed
	}

	return pc.LocalDescription().SDP, nil
}

// acceptChannel hands an inbound data channel to the session handler
// once it opens.
func (l *WebRTCListener) acceptChannel(ctx context.Context, pc *webrtc.PeerConnection, dc *webrtc.DataChannel, viewer string, handle SessionHandler) {
	dc.OnOpen(func() {
		raw, err := dc.Detach()
		if err != nil {
			l.logger.Error("detaching viewer data channel failed",
				"viewer", viewer,
				"label", dc.Label(),
				"error", err,
			)
			return
		}

		l.logger.Debug("viewer data channel open",
			"viewer", viewer,
			"label", dc.Label(),
		)

		conn := &peerConn{
			DataChannelConn: NewDataChannelConn(raw, "gateway/"+dc.Label(), viewer+"/"+dc.Label()),
			pc:              pc,
		}
		go handle(ctx, conn)
	})
}

// handleICEStateChange tears down dead PeerConnections and removes
// closed ones from the tracking map.
func (l *WebRTCListener) handleICEStateChange(pc *webrtc.PeerConnection, viewer string, state webrtc.ICEConnectionState) {
	l.logger.Debug("ICE state change", "viewer", viewer, "state", state.String())

	switch state {
	case webrtc.ICEConnectionStateFailed:
		pc.Close()
	case webrtc.ICEConnectionStateClosed:
		l.forgetPeer(pc)
	}
}

func (l *WebRTCListener) trackPeer(pc *webrtc.PeerConnection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.peers[pc] = struct{}{}
}

func (l *WebRTCListener) forgetPeer(pc *webrtc.PeerConnection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.peers, pc)
}

// dropPeer abandons a PeerConnection that failed during signaling.
func (l *WebRTCListener) dropPeer(pc *webrtc.PeerConnection) {
	l.forgetPeer(pc)
	pc.Close()
}

// peerConn couples a session conn to its PeerConnection so closing the
// session tears down the transport beneath it. Sessions use one
// PeerConnection each on both sides.
type peerConn struct {
	*DataChannelConn
	pc *webrtc.PeerConnection
}

func (c *peerConn) Close() error {
	err := c.DataChannelConn.Close()
	if closeErr := c.pc.Close(); err == nil {
		err = closeErr
	}
	return err
}

// WebRTCDialer opens viewer sessions over WebRTC data channels. The
// address passed to DialContext is the gateway's signaling address,
// either bare "host:port" or a full offer URL.
type WebRTCDialer struct {
	// ICE is the ICE server configuration for the PeerConnection.
	ICE ICEConfig
}

// DialContext establishes a WebRTC session with the gateway signaling
// at the given address.
func (d *WebRTCDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	return DialWebRTC(ctx, OfferURL(address), d.ICE)
}

// OfferURL normalizes a signaling address into the full offer URL. Bare
// "host:port" addresses become "http://host:port/offer"; anything that
// already carries a scheme passes through unchanged.
func OfferURL(address string) string {
	if strings.Contains(address, "://") {
		return address
	}
	return "http://" + address + "/offer"
}

// DialWebRTC establishes a session with the gateway whose signaling
// endpoint is at offerURL. It creates the PeerConnection and the
// session data channel, completes the single-round-trip signaling
// exchange, and returns once the channel is open. Closing the returned
// conn closes the PeerConnection.
func DialWebRTC(ctx context.Context, offerURL string, iceConfig ICEConfig) (net.Conn, error) {
	pc, err := newPeerConnection(iceConfig)
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	fail := func(err error) (net.Conn, error) {
		pc.Close()
		return nil, err
	}

	// The channel is created before the offer so the SDP includes the
	// data channel section.
	ordered := true
	dc, err := pc.CreateDataChannel(sessionChannelLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return fail(fmt.Errorf("creating session data channel: %w", err))
	}

	opened := make(chan struct{})
	dc.OnOpen(func() {
		close(opened)
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fail(fmt.Errorf("creating SDP offer: %w", err))
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return fail(fmt.Errorf("setting local description: %w", err))
	}

	// Wait for ICE gathering to complete (vanilla ICE).
	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		return fail(fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout))
	case <-ctx.Done():
		return fail(ctx.Err())
	}

	answerSDP, err := exchangeOffer(ctx, offerURL, pc.LocalDescription().SDP)
	if err != nil {
		return fail(err)
	}

	remoteAnswer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	}
	if err := pc.SetRemoteDescription(remoteAnswer); err != nil {
		return fail(fmt.Errorf("setting remote description: %w", err))
	}

	select {
	case <-opened:
	case <-time.After(dataChannelOpenTimeout):
		return fail(fmt.Errorf("session data channel did not open within %s", dataChannelOpenTimeout))
	case <-ctx.Done():
		return fail(ctx.Err())
	}

	raw, err := dc.Detach()
	if err != nil {
		return fail(fmt.Errorf("detaching session data channel: %w", err))
	}

	return &peerConn{
		DataChannelConn: NewDataChannelConn(raw, "viewer/"+sessionChannelLabel, "gateway/"+sessionChannelLabel),
		pc:              pc,
	}, nil
}

// exchangeOffer POSTs the offer SDP to the gateway's signaling endpoint
// and returns the answer SDP.
func exchangeOffer(ctx context.Context, offerURL, offerSDP string) (string, error) {
	body, err := json.Marshal(SignalRequest{SDP: offerSDP})
	if err != nil {
		return "", fmt.Errorf("encoding signaling request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, offerURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building signaling request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: signalingTimeout}
	response, err := client.Do(request)
	if err != nil {
		return "", fmt.Errorf("signaling exchange: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signaling endpoint returned %s", response.Status)
	}

	var answer SignalResponse
	if err := json.NewDecoder(io.LimitReader(response.Body, maxSignalBody)).Decode(&answer); err != nil {
		return "", fmt.Errorf("decoding signaling response: %w", err)
	}
	if answer.SDP == "" {
		return "", errors.New("signaling response carries no SDP answer")
	}
	return answer.SDP, nil
}

// newPeerConnection creates a pion PeerConnection with the given ICE
// config. The SettingEngine enables data channel detach (required for
// stream-oriented ReadWriteCloser access) and loopback ICE candidates
// (required for same-machine sessions and test environments where
// loopback is the only available interface).
func newPeerConnection(iceConfig ICEConfig) (*webrtc.PeerConnection, error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.DetachDataChannels()
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers: iceConfig.Servers,
	})
}
