package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/guideops/chat-core/internal/config"
	"github.com/guideops/chat-core/internal/models"
	"github.com/guideops/chat-core/internal/repo/redisstream"
)

func testConfig() *config.Config {
	return &config.Config{
		Chat: config.ChatConfig{
			StreamMaxLen:     100000,
			DedupeTTL:        300 * time.Second,
			BlockInterval:    50 * time.Millisecond,
			HistoryPageSize:  15,
			HistoryPageLimit: 100,
			CatchupLimit:     50,
			LiveReadCount:    50,
		},
	}
}

// fakeEntry is one raw log record. A nil msg models an entry the codec
// cannot decode, which the store skips while still reporting its id.
type fakeEntry struct {
	id  string
	msg *models.Message
}

// fakeStore is an in-memory stand-in for the Redis Streams adapter. It
// assigns "<epoch_ms>-<seq>" ids and wakes blocked readers on append,
// mirroring the blocking-read-observes-the-log fan-out contract.
type fakeStore struct {
	mu        sync.Mutex
	rooms     map[string][]fakeEntry
	nextMs    int64
	appendErr error
	notify    chan struct{}
	readCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:  make(map[string][]fakeEntry),
		nextMs: 1700000000000,
		notify: make(chan struct{}),
	}
}

func (s *fakeStore) appendEntry(roomID string, msg *models.Message) string {
	id := fmt.Sprintf("%d-0", s.nextMs)
	s.nextMs++
	if msg != nil {
		msg.ID = id
	}
	s.rooms[roomID] = append(s.rooms[roomID], fakeEntry{id: id, msg: msg})
	close(s.notify)
	s.notify = make(chan struct{})
	return id
}

func (s *fakeStore) Append(_ context.Context, msg *models.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return "", s.appendErr
	}

	stored := *msg
	return s.appendEntry(msg.RoomID, &stored), nil
}

// appendMalformed plants a record that decodes to nothing, like an entry
// written with a missing required field.
func (s *fakeStore) appendMalformed(roomID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendEntry(roomID, nil)
}

func (s *fakeStore) PageBefore(_ context.Context, roomID, beforeID string, count int64) ([]*models.Message, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.rooms[roomID]
	var page []*models.Message
	oldestID := ""
	scanned := int64(0)
	for i := len(entries) - 1; i >= 0 && scanned < count; i-- {
		if beforeID != "" && redisstream.CompareStreamIDs(entries[i].id, beforeID) >= 0 {
			continue
		}
		scanned++
		oldestID = entries[i].id
		if entries[i].msg != nil {
			page = append(page, entries[i].msg)
		}
	}
	return page, oldestID, nil
}

func (s *fakeStore) After(_ context.Context, roomID, afterID string, count int64) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Message
	scanned := int64(0)
	for _, e := range s.rooms[roomID] {
		if redisstream.CompareStreamIDs(e.id, afterID) > 0 {
			scanned++
			if e.msg != nil {
				out = append(out, e.msg)
			}
			if scanned >= count {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) HasBefore(_ context.Context, roomID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.rooms[roomID] {
		if redisstream.CompareStreamIDs(e.id, id) < 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) HeadID(_ context.Context, roomID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.rooms[roomID]
	if len(entries) == 0 {
		return "", nil
	}
	return entries[len(entries)-1].id, nil
}

func (s *fakeStore) ReadBlocking(ctx context.Context, positions map[string]string, block time.Duration, count int64) (map[string]redisstream.ReadResult, error) {
	s.mu.Lock()
	s.readCalls++
	s.mu.Unlock()

	deadline := time.After(block)
	for {
		s.mu.Lock()
		out := make(map[string]redisstream.ReadResult)
		for roomID, pos := range positions {
			var res redisstream.ReadResult
			scanned := int64(0)
			for _, e := range s.rooms[roomID] {
				if redisstream.CompareStreamIDs(e.id, pos) > 0 {
					scanned++
					res.LastID = e.id
					if e.msg != nil {
						res.Messages = append(res.Messages, e.msg)
					}
					if scanned >= count {
						break
					}
				}
			}
			if res.LastID != "" {
				out[roomID] = res
			}
		}
		ch := s.notify
		s.mu.Unlock()

		if len(out) > 0 {
			return out, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, nil
		case <-ch:
		}
	}
}

func (s *fakeStore) DeleteRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }

func (s *fakeStore) setAppendErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErr = err
}

func (s *fakeStore) entries(roomID string) []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for _, e := range s.rooms[roomID] {
		if e.msg != nil {
			out = append(out, e.msg)
		}
	}
	return out
}

func (s *fakeStore) readCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCalls
}

type fakeDedupe struct {
	mu      sync.Mutex
	markers map[string]string
}

func newFakeDedupe() *fakeDedupe {
	return &fakeDedupe{markers: make(map[string]string)}
}

func (d *fakeDedupe) key(roomID, mid string) string { return roomID + ":" + mid }

func (d *fakeDedupe) Claim(_ context.Context, roomID, mid string) (bool, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.markers[d.key(roomID, mid)]; ok {
		return false, existing, nil
	}
	d.markers[d.key(roomID, mid)] = ""
	return true, "", nil
}

func (d *fakeDedupe) Record(_ context.Context, roomID, mid, streamID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markers[d.key(roomID, mid)] = streamID
	return nil
}

func (d *fakeDedupe) Release(_ context.Context, roomID, mid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.markers, d.key(roomID, mid))
	return nil
}

func (d *fakeDedupe) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.markers)
}

type fakeCursors struct {
	mu      sync.Mutex
	cursors map[string]string
}

func newFakeCursors() *fakeCursors {
	return &fakeCursors{cursors: make(map[string]string)}
}

func (c *fakeCursors) key(userID, roomID string) string { return userID + ":" + roomID }

func (c *fakeCursors) Get(_ context.Context, userID, roomID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursors[c.key(userID, roomID)], nil
}

func (c *fakeCursors) GetAll(_ context.Context, userID string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string)
	for key, id := range c.cursors {
		if len(key) > len(userID) && key[:len(userID)+1] == userID+":" {
			out[key[len(userID)+1:]] = id
		}
	}
	return out, nil
}

func (c *fakeCursors) Advance(_ context.Context, userID, roomID, candidateID string) (bool, error) {
	if _, _, err := redisstream.ParseStreamID(candidateID); err != nil {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.cursors[c.key(userID, roomID)]
	if cur == "" || redisstream.CompareStreamIDs(candidateID, cur) > 0 {
		c.cursors[c.key(userID, roomID)] = candidateID
		return true, nil
	}
	return false, nil
}

func (c *fakeCursors) set(userID, roomID, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursors[c.key(userID, roomID)] = id
}

type fakeMembers struct {
	mu      sync.Mutex
	members map[string]map[string]bool
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{members: make(map[string]map[string]bool)}
}

func (m *fakeMembers) add(roomID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[userID] == nil {
		m.members[userID] = make(map[string]bool)
	}
	m.members[userID][roomID] = true
}

func (m *fakeMembers) AddMember(_ context.Context, roomID, userID string) error {
	m.add(roomID, userID)
	return nil
}

func (m *fakeMembers) RemoveMember(_ context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[userID], roomID)
	return nil
}

func (m *fakeMembers) RoomsForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rooms []string
	for roomID := range m.members[userID] {
		rooms = append(rooms, roomID)
	}
	return rooms, nil
}

func (m *fakeMembers) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[userID][roomID], nil
}

// collectSink gathers stream events for assertions. onSend runs before an
// event is recorded, which lets tests inject traffic at exact points of
// the subscription lifecycle.
type collectSink struct {
	mu         sync.Mutex
	events     []*models.StreamEvent
	heartbeats int
	onSend     func(ev *models.StreamEvent)
}

func (s *collectSink) Send(ev *models.StreamEvent) error {
	if s.onSend != nil {
		s.onSend(ev)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *collectSink) Heartbeat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats++
	return nil
}

func (s *collectSink) snapshot() []*models.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.StreamEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *collectSink) heartbeatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats
}
