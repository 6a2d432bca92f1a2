package mesh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meshrelay/beacon/codec"
	"github.com/meshrelay/beacon/crypto"
	"github.com/meshrelay/beacon/dupcache"
	"github.com/meshrelay/beacon/limits"
	"github.com/meshrelay/beacon/peer"
	"github.com/meshrelay/beacon/storage"
	"github.com/meshrelay/beacon/transport"
)

const sendTimeout = 3 * time.Second

const cmdQueueDepth = 256

// TimeProvider abstracts wall-clock time for deterministic retry-queue
// and relay-trace tests.
type TimeProvider interface {
	Now() time.Time
}

type realTime struct{}

func (realTime) Now() time.Time { return time.Now() }

// Engine is the orchestration layer: the send path, receive path, relay
// decision, retry queue, and observer fan-out all run as closures
// executed one at a time by a single goroutine, so PeerTable,
// DuplicateCache, and the retry queue never need their own locking at
// this layer.
type Engine struct {
	identity  *crypto.Identity
	peers     *peer.Table
	dup       *dupcache.Cache
	store     storage.Store
	transport transport.Transport
	cfg       Config
	logger    *logrus.Logger
	time      TimeProvider

	obsMu     sync.Mutex
	observers []Observer

	cmds   chan func()
	stopCh chan struct{}
	doneCh chan struct{}

	closeOnce sync.Once

	retry  map[[16]byte]*retryEntry
	traces *traceBuffer
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithTimeProvider overrides the engine's notion of "now". Intended for
// tests of the retry queue and relay traces.
func WithTimeProvider(tp TimeProvider) Option {
	return func(e *Engine) { e.time = tp }
}

// WithObserver registers an Observer at construction.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// New creates an Engine. Call Run to start its executor goroutine and
// wire transport callbacks.
func New(identity *crypto.Identity, peers *peer.Table, dup *dupcache.Cache, tr transport.Transport, store storage.Store, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		identity:  identity,
		peers:     peers,
		dup:       dup,
		store:     store,
		transport: tr,
		cfg:       cfg,
		logger:    logrus.StandardLogger(),
		time:      realTime{},
		cmds:      make(chan func(), cmdQueueDepth),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		retry:     make(map[[16]byte]*retryEntry),
		traces:    newTraceBuffer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run wires the transport's callback sinks to the engine's inbox, marks
// every peer the transport already reports connected as connected in the
// peer table, and starts the executor goroutine.
func (e *Engine) Run() {
	e.transport.OnBytes(func(id transport.PeerID, data []byte) {
		e.enqueue(func() { e.handleIngest(id, data) })
	})
	e.transport.OnStateChange(func(id transport.PeerID, connected bool) {
		e.enqueue(func() { e.peers.SetConnected(peer.ID(id), connected) })
	})
	e.transport.OnDiscovered(func(id transport.PeerID, rssi int) {
		e.enqueue(func() { e.peers.UpsertDiscovered(peer.ID(id), rssi) })
	})
	// Connections made before Run fired no callback the engine could
	// see, so seed the peer table from the transport's current view.
	e.enqueue(func() {
		for _, id := range e.transport.ConnectedPeers() {
			e.peers.SetConnected(peer.ID(id), true)
		}
	})

	go e.loop()
}

// Close stops the executor goroutine. Safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.stopCh)
	})
	<-e.doneCh
	return nil
}

func (e *Engine) loop() {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-e.cmds:
			cmd()
		case <-ticker.C:
			e.tick()
		case <-e.stopCh:
			return
		}
	}
}

// enqueue submits a fire-and-forget command, used by transport
// callbacks that have no result to wait for.
func (e *Engine) enqueue(fn func()) {
	select {
	case e.cmds <- fn:
	case <-e.stopCh:
	}
}

// submit submits a command and reports whether it was accepted; false
// means the engine is closed.
func (e *Engine) submit(fn func()) bool {
	select {
	case e.cmds <- fn:
		return true
	case <-e.stopCh:
		return false
	}
}

// OnMessage registers a callback for successfully decrypted inbound
// messages.
func (e *Engine) OnMessage(cb func(msg storage.Message)) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, &funcObserver{onReceived: cb})
}

// OnStatus registers a callback for sent-message delivery status
// transitions.
func (e *Engine) OnStatus(cb func(id [16]byte, status storage.Status)) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, &funcObserver{onStatus: cb})
}

func (e *Engine) notifyReceived(msg storage.Message) {
	e.obsMu.Lock()
	obs := append([]Observer(nil), e.observers...)
	e.obsMu.Unlock()
	for _, o := range obs {
		o.OnMessageReceived(msg)
	}
}

func (e *Engine) notifyStatus(id [16]byte, status storage.Status) {
	e.obsMu.Lock()
	obs := append([]Observer(nil), e.observers...)
	e.obsMu.Unlock()
	for _, o := range obs {
		o.OnMessageStatus(id, status)
	}
}

// Send validates and transmits a message to recipient, flooding it to
// every currently connected peer. It blocks until the send path's
// in-engine work completes (including the first transmission attempt),
// matching the synchronous Future<Message> contract.
func (e *Engine) Send(recipient peer.ID, text string) (storage.Message, error) {
	type result struct {
		msg storage.Message
		err error
	}
	resCh := make(chan result, 1)

	if !e.submit(func() {
		msg, err := e.doSend(recipient, text)
		resCh <- result{msg, err}
	}) {
		return storage.Message{}, ErrEngineClosed
	}

	res := <-resCh
	return res.msg, res.err
}

func (e *Engine) doSend(recipient peer.ID, text string) (storage.Message, error) {
	if err := limits.ValidateMessageText(text); err != nil {
		if errors.Is(err, limits.ErrMessageEmpty) {
			return storage.Message{}, ErrEmptyMessage
		}
		return storage.Message{}, ErrTooLong
	}
	// cfg.MaxTextLength may impose a tighter operational cap than the
	// protocol ceiling limits.ValidateMessageText already enforced.
	if e.cfg.MaxTextLength > 0 && utf8.RuneCountInString(text) > e.cfg.MaxTextLength {
		return storage.Message{}, ErrTooLong
	}

	rec, ok := e.peers.Get(recipient)
	if !ok {
		return storage.Message{}, ErrUnknownPeer
	}
	shared, ok := e.peers.SharedSecret(recipient)
	if !ok {
		return storage.Message{}, ErrNoSharedSecret
	}

	msgUUID := uuid.New()
	var msgID [16]byte
	copy(msgID[:], msgUUID[:])

	timestamp := e.time.Now().UnixMilli()
	ownSenderID := e.identity.SenderID()

	sealed, err := crypto.Seal([]byte(text), shared)
	if err != nil {
		return storage.Message{}, fmt.Errorf("mesh: encrypt message: %w", err)
	}

	env := &codec.Envelope{
		Version:    codec.Version,
		Timestamp:  uint64(timestamp),
		TTL:        e.cfg.TTL,
		Nonce:      sealed.Nonce[:],
		Tag:        sealed.Tag[:],
		Ciphertext: sealed.Ciphertext,
	}
	copy(env.MessageID[:], msgID[:])
	copy(env.SenderID[:], ownSenderID[:])
	copy(env.RecipientID[:], rec.SenderID[:])

	data, err := codec.Serialize(env)
	if err != nil {
		return storage.Message{}, fmt.Errorf("mesh: serialize envelope: %w", err)
	}
	if err := limits.ValidateMessageSize(data, limits.MaxEnvelopeBuffer); err != nil {
		return storage.Message{}, fmt.Errorf("mesh: serialized envelope: %w", err)
	}

	msg := storage.Message{
		ID:        msgID,
		PeerID:    recipient,
		Text:      text,
		Timestamp: timestamp,
		Direction: storage.DirectionSent,
		Status:    storage.StatusPending,
	}
	if err := e.store.StoreMessage(msg); err != nil {
		return storage.Message{}, fmt.Errorf("mesh: persist message: %w", err)
	}

	results := e.sendToConnected(data, "")
	if anySucceeded(results) {
		msg.Status = storage.StatusDelivered
		if err := e.store.StoreMessage(msg); err != nil {
			e.logger.WithError(err).Warn("failed to persist delivered status")
		}
		e.notifyStatus(msgID, storage.StatusDelivered)
		return msg, nil
	}

	e.retry[msgID] = &retryEntry{
		msg:         msg,
		envelope:    data,
		attempts:    0,
		nextAttempt: e.time.Now().Add(backoff(e.cfg.RetryBase, 0)),
	}
	return msg, nil
}

// sendToConnected transmits data to every peer currently marked
// connected except exclude, awaiting all per-peer outcomes
// independently so one slow or failing peer does not block the others.
func (e *Engine) sendToConnected(data []byte, exclude transport.PeerID) map[transport.PeerID]bool {
	ids := e.peers.ConnectedIDs()

	type outcome struct {
		peer transport.PeerID
		ok   bool
	}

	targets := make([]transport.PeerID, 0, len(ids))
	for _, id := range ids {
		target := transport.PeerID(id)
		if target != exclude {
			targets = append(targets, target)
		}
	}

	ch := make(chan outcome, len(targets))
	for _, target := range targets {
		go func(target transport.PeerID) {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			err := e.transport.Send(ctx, target, data)
			ch <- outcome{target, err == nil}
		}(target)
	}

	results := make(map[transport.PeerID]bool, len(targets))
	for range targets {
		o := <-ch
		results[o.peer] = o.ok
	}
	return results
}

func anySucceeded(results map[transport.PeerID]bool) bool {
	for _, ok := range results {
		if ok {
			return true
		}
	}
	return false
}

// IngestBytes is the transport hook: raw bytes received from a peer are
// queued for processing by the executor goroutine. Safe to call from
// any goroutine.
func (e *Engine) IngestBytes(from peer.ID, data []byte) {
	e.enqueue(func() { e.handleIngest(transport.PeerID(from), data) })
}

func (e *Engine) handleIngest(inbound transport.PeerID, data []byte) {
	env, err := codec.Deserialize(data)
	if err != nil {
		fields := logFields("handleIngest")
		fields["peer"] = inbound
		fields["error"] = err
		e.logger.WithFields(fields).Debug("discarding malformed envelope")
		return
	}

	if err := validateEnvelope(env); err != nil {
		fields := logFields("handleIngest")
		fields["peer"] = inbound
		fields["error"] = err
		e.logger.WithFields(fields).Debug("discarding envelope that failed semantic validation")
		return
	}

	var msgID [16]byte
	copy(msgID[:], env.MessageID[:])

	if e.dup.IsDuplicate(msgID) {
		return
	}
	e.dup.MarkProcessed(msgID)

	senderID, resolved := e.resolveSender(env.SenderID, peer.ID(inbound))
	if resolved {
		e.tryDeliver(env, msgID, senderID)
	}

	if env.TTL > 0 {
		e.relay(env, inbound)
	}
}

func validateEnvelope(env *codec.Envelope) error {
	if len(env.Nonce) != crypto.NonceSize {
		return fmt.Errorf("mesh: bad nonce length %d", len(env.Nonce))
	}
	if len(env.Tag) != crypto.TagSize {
		return fmt.Errorf("mesh: bad tag length %d", len(env.Tag))
	}
	return nil
}

func (e *Engine) resolveSender(senderID [8]byte, inbound peer.ID) (peer.ID, bool) {
	var sid peer.SenderID
	copy(sid[:], senderID[:])
	if id, ok := e.peers.LookupBySenderID(sid); ok {
		return id, true
	}
	if _, ok := e.peers.Get(inbound); ok {
		return inbound, true
	}
	return "", false
}

// tryDeliver attempts decryption and local delivery. It never returns
// an error: an authentication failure here just means this node is not
// the intended recipient, and the receive path continues on to relay.
func (e *Engine) tryDeliver(env *codec.Envelope, msgID [16]byte, senderID peer.ID) {
	shared, ok := e.peers.SharedSecret(senderID)
	if !ok {
		return
	}

	sealed := &crypto.Sealed{Ciphertext: env.Ciphertext}
	copy(sealed.Nonce[:], env.Nonce)
	copy(sealed.Tag[:], env.Tag)

	plaintext, ok := crypto.Open(sealed, shared)
	if !ok {
		return
	}

	msg := storage.Message{
		ID:        msgID,
		PeerID:    senderID,
		Text:      string(plaintext),
		Timestamp: int64(env.Timestamp),
		Direction: storage.DirectionReceived,
	}
	if err := e.store.StoreMessage(msg); err != nil {
		e.logger.WithError(err).Warn("failed to persist received message")
	}
	e.notifyReceived(msg)
}

func (e *Engine) relay(env *codec.Envelope, inbound transport.PeerID) {
	relayEnv := *env
	relayEnv.TTL = env.TTL - 1

	data, err := codec.Serialize(&relayEnv)
	if err != nil {
		e.logger.WithError(err).Warn("failed to serialize relay envelope")
		return
	}

	results := e.sendToConnected(data, inbound)

	var msgID [16]byte
	copy(msgID[:], env.MessageID[:])

	fields := logFields("relay")
	fields["message_id_prefix"] = fmt.Sprintf("%x", msgID[:4])
	fields["new_ttl"] = relayEnv.TTL
	fields["inbound"] = inbound
	e.logger.WithFields(fields).Debug("relayed envelope")

	e.traces.record(RelayTrace{
		MessageID: msgID,
		NewTTL:    relayEnv.TTL,
		At:        e.time.Now(),
		Inbound:   inbound,
		Results:   results,
	})
}

// tick drives the retry queue's exponential backoff and sweeps the
// duplicate cache. It runs on the engine's own schedule, independent of
// any transport or user-driven activity.
func (e *Engine) tick() {
	e.dup.Prune()

	now := e.time.Now()
	for id, entry := range e.retry {
		if now.Before(entry.nextAttempt) {
			continue
		}

		results := e.sendToConnected(entry.envelope, "")
		if anySucceeded(results) {
			entry.msg.Status = storage.StatusDelivered
			if err := e.store.StoreMessage(entry.msg); err != nil {
				e.logger.WithError(err).Warn("failed to persist delivered status")
			}
			delete(e.retry, id)
			e.notifyStatus(id, storage.StatusDelivered)
			continue
		}

		entry.attempts++
		if entry.attempts >= e.cfg.MaxAttempts {
			entry.msg.Status = storage.StatusFailed
			if err := e.store.StoreMessage(entry.msg); err != nil {
				e.logger.WithError(err).Warn("failed to persist failed status")
			}
			delete(e.retry, id)
			e.notifyStatus(id, storage.StatusFailed)
			continue
		}

		entry.nextAttempt = now.Add(backoff(e.cfg.RetryBase, entry.attempts))
	}
}

// VerifyPeer compares a scanned fingerprint against a peer's bound
// public key and, on a match, marks the peer verified.
func (e *Engine) VerifyPeer(id peer.ID, scannedFingerprint string) (bool, error) {
	type result struct {
		ok  bool
		err error
	}
	resCh := make(chan result, 1)

	if !e.submit(func() {
		rec, ok := e.peers.Get(id)
		if !ok || !rec.HasKey {
			resCh <- result{false, nil}
			return
		}

		matches := crypto.VerifyFingerprint(scannedFingerprint, rec.PublicKey)
		if matches {
			if err := e.peers.SetVerified(id, true); err != nil {
				resCh <- result{false, err}
				return
			}
		}
		resCh <- result{matches, nil}
	}) {
		return false, ErrEngineClosed
	}

	res := <-resCh
	return res.ok, res.err
}

// Peers returns a snapshot of every known peer.
func (e *Engine) Peers() []peer.Record {
	resCh := make(chan []peer.Record, 1)
	if !e.submit(func() { resCh <- e.peers.Snapshot() }) {
		return nil
	}
	return <-resCh
}

// Messages returns the persisted message history for one peer.
func (e *Engine) Messages(id peer.ID) ([]storage.Message, error) {
	type result struct {
		msgs []storage.Message
		err  error
	}
	resCh := make(chan result, 1)
	if !e.submit(func() {
		msgs, err := e.store.LoadMessages(id)
		resCh <- result{msgs, err}
	}) {
		return nil, ErrEngineClosed
	}
	res := <-resCh
	return res.msgs, res.err
}

// RelayTraces returns the most recent relay trace events, oldest first.
func (e *Engine) RelayTraces() []RelayTrace {
	resCh := make(chan []RelayTrace, 1)
	if !e.submit(func() { resCh <- e.traces.snapshot() }) {
		return nil
	}
	return <-resCh
}
