package keyexchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	keySends  int
	urlSends  []string
	keyNotify int
	urlNotify []string

	failKey bool
	failURL bool
}

func (r *recorder) SendKey() error {
	r.keySends++
	if r.failKey {
		return errors.New("encode failed")
	}
	return nil
}

func (r *recorder) SendURL(url string) error {
	r.urlSends = append(r.urlSends, url)
	if r.failURL {
		return errors.New("encode failed")
	}
	return nil
}

func (r *recorder) NotifyKey() { r.keyNotify++ }
func (r *recorder) NotifyURL(url string) { r.urlNotify = append(r.urlNotify, url) }

func TestInactiveExchangeDoesNothing(t *testing.T) {
	var e Exchange
	r := &recorder{}

	e.Confirm()
	e.ReceiveURL("https://relay.example/x")
	e.SetOutgoingURL("https://relay.example/y")
	e.Run(r)

	assert.False(t, e.Active())
	assert.Zero(t, r.keySends)
	assert.Empty(t, r.urlSends)
	assert.Zero(t, r.keyNotify)
	assert.Empty(t, r.urlNotify)
}

func TestKeySentOnce(t *testing.T) {
	var e Exchange
	r := &recorder{}
	e.Activate()

	for range 5 {
		e.Run(r)
	}
	assert.Equal(t, 1, r.keySends)
	assert.Zero(t, r.keyNotify, "not confirmed yet")
}

func TestKeySendRetriedOnFailure(t *testing.T) {
	var e Exchange
	r := &recorder{failKey: true}
	e.Activate()

	e.Run(r)
	e.Run(r)
	assert.Equal(t, 2, r.keySends)
	assert.False(t, e.Snapshot().KeySent)

	r.failKey = false
	e.Run(r)
	e.Run(r)
	assert.Equal(t, 3, r.keySends)
	assert.True(t, e.Snapshot().KeySent)
}

func TestConfirmNotifiesOnce(t *testing.T) {
	var e Exchange
	r := &recorder{}
	e.Activate()

	e.Run(r)
	e.Confirm()
	e.Run(r)
	e.Confirm()
	e.Run(r)

	assert.Equal(t, 1, r.keyNotify)
	snap := e.Snapshot()
	assert.True(t, snap.KeyConfirmed)
	assert.True(t, snap.KeyNotified)
}

func TestOutgoingURL(t *testing.T) {
	var e Exchange
	r := &recorder{}

	e.SetOutgoingURL("https://relay.example/a")
	e.Activate()
	e.Run(r)
	assert.Empty(t, r.urlSends, "activation clears the outgoing URL")

	e.SetOutgoingURL("https://relay.example/a")
	e.Run(r)
	e.Run(r)
	assert.Equal(t, []string{"https://relay.example/a"}, r.urlSends)

	e.SetOutgoingURL("https://relay.example/a")
	e.Run(r)
	assert.Len(t, r.urlSends, 1, "same URL is not resent")

	e.SetOutgoingURL("https://relay.example/b")
	e.Run(r)
	assert.Equal(t, []string{"https://relay.example/a", "https://relay.example/b"}, r.urlSends)
}

func TestOutgoingURLRetriedOnFailure(t *testing.T) {
	var e Exchange
	r := &recorder{failURL: true}
	e.Activate()
	e.SetOutgoingURL("https://relay.example/a")

	e.Run(r)
	r.failURL = false
	e.Run(r)
	e.Run(r)

	assert.Len(t, r.urlSends, 2)
	assert.True(t, e.Snapshot().URLSent)
}

func TestIncomingURL(t *testing.T) {
	var e Exchange
	r := &recorder{}
	e.Activate()

	e.ReceiveURL("")
	e.Run(r)
	assert.Empty(t, r.urlNotify)

	e.ReceiveURL("https://relay.example/p")
	e.Run(r)
	e.Run(r)
	assert.Equal(t, []string{"https://relay.example/p"}, r.urlNotify)

	e.ReceiveURL("https://relay.example/p")
	e.Run(r)
	assert.Len(t, r.urlNotify, 1, "repeat is ignored")

	e.ReceiveURL("https://relay.example/q")
	e.Run(r)
	assert.Equal(t, []string{"https://relay.example/p", "https://relay.example/q"}, r.urlNotify)
}

func TestResetKeepsOutgoingURL(t *testing.T) {
	var e Exchange
	e.Activate()
	e.SetOutgoingURL("https://relay.example/a")
	e.Confirm()

	e.Reset(false)
	snap := e.Snapshot()
	assert.False(t, snap.Active)
	assert.False(t, snap.KeyConfirmed)
	assert.Equal(t, "https://relay.example/a", snap.OutgoingURL)

	e.Reset(true)
	assert.Empty(t, e.Snapshot().OutgoingURL)
}
