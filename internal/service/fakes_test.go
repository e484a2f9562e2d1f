package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

func stateKey(userID, chatID string) string { return userID + "|" + chatID }

// recordPublisher captures emitted events for assertions.
type emitted struct {
	Target  string
	ToUser  bool
	Event   string
	Payload any
}

type recordPublisher struct {
	mu     sync.Mutex
	events []emitted
}

func (p *recordPublisher) EmitToRoom(room, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, emitted{Target: room, Event: event, Payload: payload})
}

func (p *recordPublisher) EmitToUser(userID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, emitted{Target: userID, ToUser: true, Event: event, Payload: payload})
}

func (p *recordPublisher) byEvent(event string) []emitted {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []emitted
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// waitFor polls for events emitted from background goroutines.
func (p *recordPublisher) waitFor(t *testing.T, event string, n int) []emitted {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := p.byEvent(event); len(evs) >= n {
			return evs
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %q events, got %d", n, event, len(p.byEvent(event)))
	return nil
}

type fakeMembers struct {
	mu          sync.Mutex
	byChat      map[string][]string
	isMemberErr error
	otherErr    error
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{byChat: map[string][]string{}}
}

func (f *fakeMembers) add(chatID string, users ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byChat[chatID] = append(f.byChat[chatID], users...)
}

func (f *fakeMembers) IsMember(_ context.Context, chatID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isMemberErr != nil {
		return false, f.isMemberErr
	}
	for _, u := range f.byChat[chatID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembers) Add(_ context.Context, chatID, userID string) (*domain.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byChat[chatID] = append(f.byChat[chatID], userID)
	return &domain.ChatMember{ChatID: chatID, UserID: userID, JoinedAt: time.Now()}, nil
}

func (f *fakeMembers) ListByChat(_ context.Context, chatID string) ([]domain.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatMember
	for _, u := range f.byChat[chatID] {
		out = append(out, domain.ChatMember{ChatID: chatID, UserID: u})
	}
	return out, nil
}

func (f *fakeMembers) MemberIDs(_ context.Context, chatID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.byChat[chatID]...), nil
}

func (f *fakeMembers) OtherMemberIDs(_ context.Context, chatID, excludeUserID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.otherErr != nil {
		return nil, f.otherErr
	}
	var out []string
	for _, u := range f.byChat[chatID] {
		if u != excludeUserID {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeStates struct {
	mu      sync.Mutex
	members *fakeMembers
	rows    map[string]*domain.ChatUserState
	seq     int

	incrementErr     error
	expiredErr       error
	deletedIDsErr    error
	upsertDeletedErr map[string]error // keyed by userID
	clearErrFor      map[string]error // keyed by state ID
}

func newFakeStates(members *fakeMembers) *fakeStates {
	return &fakeStates{
		members:          members,
		rows:             map[string]*domain.ChatUserState{},
		upsertDeletedErr: map[string]error{},
		clearErrFor:      map[string]error{},
	}
}

// row returns the single state row for the pair, creating it on first touch.
func (f *fakeStates) row(userID, chatID string) *domain.ChatUserState {
	k := stateKey(userID, chatID)
	s, ok := f.rows[k]
	if !ok {
		f.seq++
		s = &domain.ChatUserState{ID: fmt.Sprintf("state-%d", f.seq), UserID: userID, ChatID: chatID}
		f.rows[k] = s
	}
	return s
}

func copyState(s *domain.ChatUserState) *domain.ChatUserState {
	c := *s
	return &c
}

func (f *fakeStates) UpsertPresence(_ context.Context, userID, chatID string, isOnline bool) (*domain.ChatUserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.row(userID, chatID)
	s.IsOnline = isOnline
	s.LastSeen = time.Now()
	return copyState(s), nil
}

func (f *fakeStates) UpsertTyping(_ context.Context, userID, chatID string, isTyping bool) (*domain.ChatUserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.row(userID, chatID)
	s.IsTyping = isTyping
	if isTyping {
		now := time.Now()
		s.LastTypingAt = &now
	}
	s.IsOnline = true
	s.LastSeen = time.Now()
	return copyState(s), nil
}

func (f *fakeStates) UpsertRead(_ context.Context, userID, chatID, messageID string) (*domain.ChatUserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.row(userID, chatID)
	id := messageID
	s.LastReadMessageID = &id
	s.UnreadCount = 0
	s.IsOnline = true
	s.LastSeen = time.Now()
	return copyState(s), nil
}

func (f *fakeStates) IncrementUnread(_ context.Context, userID, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	f.row(userID, chatID).UnreadCount++
	return nil
}

func (f *fakeStates) UpsertMute(_ context.Context, userID, chatID string, isMuted bool) (*domain.ChatUserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.row(userID, chatID)
	s.IsMuted = isMuted
	return copyState(s), nil
}

func (f *fakeStates) UpsertDeleted(_ context.Context, userID, chatID string, isDeleted bool) (*domain.ChatUserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertDeletedErr[userID]; err != nil {
		return nil, err
	}
	s := f.row(userID, chatID)
	s.IsDeleted = isDeleted
	if isDeleted {
		now := time.Now()
		s.DeletedAt = &now
	} else {
		s.DeletedAt = nil
	}
	return copyState(s), nil
}

func (f *fakeStates) Get(_ context.Context, userID, chatID string) (*domain.ChatUserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[stateKey(userID, chatID)]
	if !ok {
		return nil, nil
	}
	return copyState(s), nil
}

func (f *fakeStates) ListByChat(_ context.Context, chatID string) ([]domain.ChatUserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatUserState
	for _, s := range f.rows {
		if s.ChatID == chatID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeStates) ListUnreadByUser(_ context.Context, userID string) ([]domain.ChatUnread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatUnread
	for _, s := range f.rows {
		if s.UserID == userID && !s.IsDeleted && s.UnreadCount > 0 {
			out = append(out, domain.ChatUnread{ChatID: s.ChatID, UnreadCount: s.UnreadCount})
		}
	}
	return out, nil
}

func (f *fakeStates) DeletedMemberIDs(_ context.Context, chatID, excludeUserID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deletedIDsErr != nil {
		return nil, f.deletedIDsErr
	}
	var out []string
	for _, s := range f.rows {
		if s.ChatID == chatID && s.UserID != excludeUserID && s.IsDeleted {
			out = append(out, s.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStates) AllMembersDeleted(_ context.Context, chatID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members.mu.Lock()
	members := append([]string(nil), f.members.byChat[chatID]...)
	f.members.mu.Unlock()
	for _, u := range members {
		s, ok := f.rows[stateKey(u, chatID)]
		if !ok || !s.IsDeleted {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeStates) ExpiredTyping(_ context.Context, cutoff time.Time) ([]domain.ChatUserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expiredErr != nil {
		return nil, f.expiredErr
	}
	var out []domain.ChatUserState
	for _, s := range f.rows {
		if s.IsTyping && s.LastTypingAt != nil && s.LastTypingAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStates) ClearTyping(_ context.Context, stateID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.clearErrFor[stateID]; err != nil {
		return err
	}
	for _, s := range f.rows {
		if s.ID == stateID {
			s.IsTyping = false
		}
	}
	return nil
}

type fakeChats struct {
	mu          sync.Mutex
	members     *fakeMembers
	chats       map[string]*domain.Chat
	seq         int
	hardDeleted []string
}

func newFakeChats(members *fakeMembers) *fakeChats {
	return &fakeChats{members: members, chats: map[string]*domain.Chat{}}
}

func (f *fakeChats) Create(_ context.Context, chat *domain.Chat, memberIDs []string) error {
	f.mu.Lock()
	f.seq++
	chat.ID = fmt.Sprintf("chat-%d", f.seq)
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt
	c := *chat
	f.chats[chat.ID] = &c
	f.mu.Unlock()
	f.members.add(chat.ID, memberIDs...)
	return nil
}

func (f *fakeChats) Get(_ context.Context, id string) (*domain.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[id]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeChats) GetWithHistory(ctx context.Context, id string) (*domain.Chat, error) {
	c, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Members, _ = f.members.ListByChat(ctx, id)
	return c, nil
}

func (f *fakeChats) ListByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Chat
	for id, c := range f.chats {
		for _, u := range f.members.byChat[id] {
			if u == userID {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeChats) FindIndividual(_ context.Context, userA, userB string) (*domain.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chats {
		if c.Type != domain.ChatTypeIndividual {
			continue
		}
		members := f.members.byChat[id]
		if len(members) != 2 {
			continue
		}
		if (members[0] == userA && members[1] == userB) || (members[0] == userB && members[1] == userA) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeChats) HardDelete(_ context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.chats[chatID]; !ok {
		return domain.ErrChatNotFound
	}
	delete(f.chats, chatID)
	f.hardDeleted = append(f.hardDeleted, chatID)
	return nil
}

type fakeMessages struct {
	mu   sync.Mutex
	msgs []*domain.Message
	seq  int
}

func (f *fakeMessages) Create(_ context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	m.ID = fmt.Sprintf("msg-%d", f.seq)
	m.CreatedAt = time.Now()
	cp := *m
	f.msgs = append(f.msgs, &cp)
	return nil
}

func (f *fakeMessages) Get(_ context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (f *fakeMessages) List(_ context.Context, chatID, senderID string, limit, offset int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for i := len(f.msgs) - 1; i >= 0; i-- {
		m := f.msgs[i]
		if chatID != "" && m.ChatID != chatID {
			continue
		}
		if senderID != "" && m.SenderID != senderID {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeMessages) Latest(_ context.Context, chatID string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i].ChatID == chatID {
			cp := *f.msgs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeUsers struct {
	names map[string]string
}

func (f *fakeUsers) Get(_ context.Context, id string) (*domain.User, error) {
	name, ok := f.names[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &domain.User{ID: id, Name: name}, nil
}

type fakeNotifStore struct {
	mu          sync.Mutex
	created     []domain.Notification
	createCalls int
	pings       int
	marked      []string
	unread      []domain.Notification

	pingErr   error
	createErr error
	listErr   error
}

func (f *fakeNotifStore) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeNotifStore) Create(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeNotifStore) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeNotifStore) ListUnread(_ context.Context, recipientID string, limit int, cursor string) ([]domain.Notification, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	var out []domain.Notification
	for _, n := range f.unread {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, "", nil
}

type stubChatNotifier struct {
	mu      sync.Mutex
	created int
	joined  int
}

func (s *stubChatNotifier) NotifyChatCreated(_ context.Context, _ *domain.Chat, _ string, _ []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
}

func (s *stubChatNotifier) NotifyUserJoinedChat(_ context.Context, _, _, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined++
}

func (s *stubChatNotifier) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created, s.joined
}

type stubUnread struct {
	mu    sync.Mutex
	calls int
	ok    bool
}

func (s *stubUnread) IncrementUnreadCounter(_ context.Context, _, _ string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.ok
}

type stubMsgNotifier struct {
	mu   sync.Mutex
	msgs []*domain.Message
}

func (s *stubMsgNotifier) NotifyNewMessage(_ context.Context, msg *domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}
