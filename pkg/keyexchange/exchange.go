package keyexchange

// Actions are the side effects an Exchange drives. The pairing machine
// implements them with its codec, transport and notification sink.
type Actions interface {
	// SendKey sends the local public key to the partner.
	SendKey() error

	// SendURL sends the outgoing relay URL to the partner.
	SendURL(url string) error

	// NotifyKey hands the partner's public key to the sink.
	NotifyKey()

	// NotifyURL hands a received relay URL to the sink.
	NotifyURL(url string)
}

// Exchange is the per-session key-exchange record. The zero value is an
// inactive exchange.
type Exchange struct {
	active bool

	keySent      bool
	keyConfirmed bool
	keyNotified  bool

	outgoingURL string
	urlSent     bool

	incomingURL string
	urlPending  bool
}

// Reset clears all session state. The outgoing URL is kept unless clearURL
// is set.
func (e *Exchange) Reset(clearURL bool) {
	url := e.outgoingURL
	*e = Exchange{}
	if !clearURL {
		e.outgoingURL = url
	}
}

// Activate starts a new session.
func (e *Exchange) Activate() {
	e.Reset(true)
	e.active = true
}

// Active reports whether a session is running.
func (e *Exchange) Active() bool {
	return e.active
}

// SetOutgoingURL queues url for delivery to the partner. A URL that was
// already sent in this session is not sent again; a different one is.
func (e *Exchange) SetOutgoingURL(url string) {
	if url == e.outgoingURL {
		return
	}
	e.outgoingURL = url
	e.urlSent = false
}

// Confirm records the partner's KEY_EXCHANGE.
func (e *Exchange) Confirm() {
	if e.active {
		e.keyConfirmed = true
	}
}

// ReceiveURL records a relay URL from the partner. Repeats of the last
// delivered URL are ignored.
func (e *Exchange) ReceiveURL(url string) {
	if !e.active || url == "" {
		return
	}
	if url == e.incomingURL && !e.urlPending {
		return
	}
	e.incomingURL = url
	e.urlPending = true
}

// Run performs every step that is due. It is a no-op when inactive.
func (e *Exchange) Run(a Actions) {
	if !e.active {
		return
	}

	if !e.keySent {
		if err := a.SendKey(); err == nil {
			e.keySent = true
		}
	}

	if e.keyConfirmed && !e.keyNotified {
		e.keyNotified = true
		a.NotifyKey()
	}

	if e.outgoingURL != "" && !e.urlSent {
		if err := a.SendURL(e.outgoingURL); err == nil {
			e.urlSent = true
		}
	}

	if e.urlPending {
		e.urlPending = false
		a.NotifyURL(e.incomingURL)
	}
}

// Snapshot returns the current flags.
func (e *Exchange) Snapshot() Snapshot {
	return Snapshot{
		Active:       e.active,
		KeySent:      e.keySent,
		KeyConfirmed: e.keyConfirmed,
		KeyNotified:  e.keyNotified,
		OutgoingURL:  e.outgoingURL,
		URLSent:      e.urlSent,
		IncomingURL:  e.incomingURL,
	}
}

// Snapshot is a copy of the exchange flags for status reporting.
type Snapshot struct {
	Active       bool   `json:"active"`
	KeySent      bool   `json:"keySent"`
	KeyConfirmed bool   `json:"keyConfirmed"`
	KeyNotified  bool   `json:"keyNotified"`
	OutgoingURL  string `json:"outgoingUrl,omitempty"`
	URLSent      bool   `json:"urlSent"`
	IncomingURL  string `json:"incomingUrl,omitempty"`
}
