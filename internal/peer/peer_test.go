package peer

import (
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostCandidate = "candidate:4234997325 1 udp 2130706431 127.0.0.1 54400 typ host"

// captureSignaler records relayed negotiation messages instead of sending
// them anywhere.
type captureSignaler struct {
	mu         sync.Mutex
	offers     map[string]webrtc.SessionDescription
	answers    map[string]webrtc.SessionDescription
	candidates map[string][]webrtc.ICECandidateInit
}

func newCaptureSignaler() *captureSignaler {
	return &captureSignaler{
		offers:     make(map[string]webrtc.SessionDescription),
		answers:    make(map[string]webrtc.SessionDescription),
		candidates: make(map[string][]webrtc.ICECandidateInit),
	}
}

func (s *captureSignaler) SendOffer(targetID string, sdp webrtc.SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[targetID] = sdp
	return nil
}

func (s *captureSignaler) SendAnswer(targetID string, sdp webrtc.SessionDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[targetID] = sdp
	return nil
}

func (s *captureSignaler) SendCandidate(targetID string, candidate webrtc.ICECandidateInit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[targetID] = append(s.candidates[targetID], candidate)
	return nil
}

func (s *captureSignaler) offerFor(targetID string) (webrtc.SessionDescription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sdp, ok := s.offers[targetID]
	return sdp, ok
}

func (s *captureSignaler) answerFor(targetID string) (webrtc.SessionDescription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sdp, ok := s.answers[targetID]
	return sdp, ok
}

func videoTrack(t *testing.T) webrtc.TrackLocal {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "test")
	require.NoError(t, err)
	return track
}

func newTestPerformer(t *testing.T) (*Performer, *captureSignaler) {
	t.Helper()
	sig := newCaptureSignaler()
	p := NewPerformer(sig, []webrtc.TrackLocal{videoTrack(t)}, nil, zerolog.Nop())
	t.Cleanup(p.Teardown)
	return p, sig
}

func newTestAudience(t *testing.T) (*Audience, *captureSignaler) {
	t.Helper()
	sig := newCaptureSignaler()
	a := NewAudience(sig, nil, nil, zerolog.Nop())
	t.Cleanup(a.Teardown)
	return a, sig
}

func TestNegotiationStateString(t *testing.T) {
	assert.Equal(t, "none", StateNone.String())
	assert.Equal(t, "offer-sent", StateOfferSent.String())
	assert.Equal(t, "established", StateEstablished.String())
	assert.Equal(t, "unknown", NegotiationState(99).String())
}

func TestEnsureLinkIdempotent(t *testing.T) {
	p, sig := newTestPerformer(t)

	require.NoError(t, p.EnsureLink("aud-1"))
	require.NoError(t, p.EnsureLink("aud-1"))

	assert.Equal(t, 1, p.LinkCount())
	link, ok := p.Link("aud-1")
	require.True(t, ok)
	assert.Equal(t, StateOfferSent, link.State())

	_, ok = sig.offerFor("aud-1")
	assert.True(t, ok)
}

func TestFullNegotiation(t *testing.T) {
	performer, perfSig := newTestPerformer(t)
	audience, audSig := newTestAudience(t)
	audience.SetSeated(true)

	require.NoError(t, performer.EnsureLink("aud-1"))
	offer, ok := perfSig.offerFor("aud-1")
	require.True(t, ok)

	require.NoError(t, audience.HandleOffer("perf-1", offer))
	answer, ok := audSig.answerFor("perf-1")
	require.True(t, ok)

	audLink, ok := audience.Link("perf-1")
	require.True(t, ok)
	assert.Equal(t, StateEstablished, audLink.State())

	require.NoError(t, performer.HandleAnswer("aud-1", answer))
	perfLink, ok := performer.Link("aud-1")
	require.True(t, ok)
	assert.Equal(t, StateEstablished, perfLink.State())
}

func TestOfferDroppedWhenNotSeated(t *testing.T) {
	performer, perfSig := newTestPerformer(t)
	audience, _ := newTestAudience(t)

	require.NoError(t, performer.EnsureLink("aud-1"))
	offer, _ := perfSig.offerFor("aud-1")

	require.NoError(t, audience.HandleOffer("perf-1", offer))
	assert.Equal(t, 0, audience.LinkCount())
}

func TestDuplicateOfferDropped(t *testing.T) {
	performer, perfSig := newTestPerformer(t)
	audience, _ := newTestAudience(t)
	audience.SetSeated(true)

	require.NoError(t, performer.EnsureLink("aud-1"))
	offer, _ := perfSig.offerFor("aud-1")

	require.NoError(t, audience.HandleOffer("perf-1", offer))
	require.NoError(t, audience.HandleOffer("perf-1", offer))
	assert.Equal(t, 1, audience.LinkCount())
}

func TestHandleAnswerOutOfOrder(t *testing.T) {
	performer, perfSig := newTestPerformer(t)
	audience, audSig := newTestAudience(t)
	audience.SetSeated(true)

	// An answer for a remote the performer never offered to is dropped.
	bogus := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}
	require.NoError(t, performer.HandleAnswer("stranger", bogus))
	assert.Equal(t, 0, performer.LinkCount())

	// A second answer for an established link is dropped, not re-applied.
	require.NoError(t, performer.EnsureLink("aud-1"))
	offer, _ := perfSig.offerFor("aud-1")
	require.NoError(t, audience.HandleOffer("perf-1", offer))
	answer, _ := audSig.answerFor("perf-1")
	require.NoError(t, performer.HandleAnswer("aud-1", answer))
	require.NoError(t, performer.HandleAnswer("aud-1", answer))

	link, _ := performer.Link("aud-1")
	assert.Equal(t, StateEstablished, link.State())
}

func TestCandidateBufferedUntilRemoteDescription(t *testing.T) {
	performer, perfSig := newTestPerformer(t)
	audience, audSig := newTestAudience(t)
	audience.SetSeated(true)

	require.NoError(t, performer.EnsureLink("aud-1"))
	link, _ := performer.Link("aud-1")

	// Candidates arriving before the answer are buffered, duplicates dropped.
	performer.HandleCandidate("aud-1", webrtc.ICECandidateInit{Candidate: hostCandidate})
	performer.HandleCandidate("aud-1", webrtc.ICECandidateInit{Candidate: hostCandidate})
	assert.Equal(t, 1, link.PendingCandidates())

	offer, _ := perfSig.offerFor("aud-1")
	require.NoError(t, audience.HandleOffer("perf-1", offer))
	answer, ok := audSig.answerFor("perf-1")
	require.True(t, ok)
	require.NoError(t, performer.HandleAnswer("aud-1", answer))

	// The buffer flushed when the remote description was applied.
	assert.Equal(t, 0, link.PendingCandidates())
}

func TestCandidateForUnknownPeerDropped(t *testing.T) {
	performer, _ := newTestPerformer(t)
	performer.HandleCandidate("stranger", webrtc.ICECandidateInit{Candidate: hostCandidate})
	assert.Equal(t, 0, performer.LinkCount())
}

func TestDropPeer(t *testing.T) {
	performer, _ := newTestPerformer(t)

	require.NoError(t, performer.EnsureLink("aud-1"))
	performer.DropPeer("aud-1")
	assert.Equal(t, 0, performer.LinkCount())

	// Dropping an unknown peer is a no-op.
	performer.DropPeer("aud-1")
}

func TestTeardownSafeWhenEmpty(t *testing.T) {
	audience, _ := newTestAudience(t)
	audience.Teardown()
	audience.Teardown()
	assert.Equal(t, 0, audience.LinkCount())
}

func TestSeatedFlag(t *testing.T) {
	audience, _ := newTestAudience(t)
	assert.False(t, audience.Seated())
	audience.SetSeated(true)
	assert.True(t, audience.Seated())
	audience.SetSeated(false)
	assert.False(t, audience.Seated())
}
