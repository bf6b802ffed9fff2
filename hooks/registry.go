package hooks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/events"
	"github.com/google/uuid"
)

type Category string

const (
	CategoryInstall          Category = "install"
	CategoryUninstall        Category = "uninstall"
	CategoryEvent            Category = "event"
	CategoryRoomMessaging    Category = "room_messaging"
	CategoryRoomMessage      Category = "room_message"
	CategoryRoomNotification Category = "room_notification"
	CategoryRoomTopicChange  Category = "room_topic_change"
	CategoryRoomVisiting     Category = "room_visiting"
	CategoryRoomEnter        Category = "room_enter"
	CategoryRoomExit         Category = "room_exit"
)

const DefaultPriority = 100

// Result tells the registry whether later handlers of the same category run.
type Result int

const (
	Continue Result = iota
	Stop
)

type HandlerID string

// Handler receives the credential of the addressed installation, which is nil
// when the installation is unknown.
type Handler func(ctx context.Context, cred *core.Credential, event events.Event) (Result, error)

type RegisterOption func(*registration)

func WithPriority(priority int) RegisterOption {
	return func(r *registration) {
		r.priority = priority
	}
}

type registration struct {
	id       HandlerID
	priority int
	seq      uint64
	handler  Handler
}

type Registry struct {
	mu       sync.RWMutex
	seq      uint64
	handlers map[Category][]registration
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[Category][]registration{}}
}

// Register adds a handler. Lower priorities run first; equal priorities run
// in registration order.
func (r *Registry) Register(category Category, handler Handler, opts ...RegisterOption) (HandlerID, error) {
	if r == nil {
		return "", core.Internal("hooks: registry is nil", nil)
	}
	category = normalizeCategory(category)
	if category == "" {
		return "", core.BadInput("hooks: category is required", nil)
	}
	if handler == nil {
		return "", core.BadInput("hooks: handler is required", map[string]any{"category": string(category)})
	}

	entry := registration{
		id:       HandlerID(uuid.NewString()),
		priority: DefaultPriority,
		handler:  handler,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&entry)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = map[Category][]registration{}
	}
	r.seq++
	entry.seq = r.seq

	list := append(append([]registration(nil), r.handlers[category]...), entry)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority < list[j].priority
		}
		return list[i].seq < list[j].seq
	})
	r.handlers[category] = list
	return entry.id, nil
}

// Unregister reports whether the handler was present.
func (r *Registry) Unregister(category Category, id HandlerID) bool {
	if r == nil {
		return false
	}
	category = normalizeCategory(category)
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.handlers[category]
	for idx, entry := range current {
		if entry.id != id {
			continue
		}
		next := make([]registration, 0, len(current)-1)
		next = append(next, current[:idx]...)
		next = append(next, current[idx+1:]...)
		if len(next) == 0 {
			delete(r.handlers, category)
		} else {
			r.handlers[category] = next
		}
		return true
	}
	return false
}

func (r *Registry) Len(category Category) int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[normalizeCategory(category)])
}

// Fire runs one category against a snapshot of its handlers. A Stop result
// ends the category; a handler error aborts and is returned wrapped.
func (r *Registry) Fire(ctx context.Context, category Category, cred *core.Credential, event events.Event) error {
	if r == nil {
		return nil
	}
	category = normalizeCategory(category)
	for _, entry := range r.snapshot(category) {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := entry.handler(ctx, cred, event)
		if err != nil {
			return fmt.Errorf("hooks: %s handler %q failed: %w", category, entry.id, err)
		}
		if result == Stop {
			return nil
		}
	}
	return nil
}

// Dispatch fires the generic event category, then the family category, then
// the specific category of the event kind. Stop in one category never skips
// the next one.
func (r *Registry) Dispatch(ctx context.Context, cred *core.Credential, event events.Event) error {
	if event == nil {
		return core.BadInput("hooks: event is required", nil)
	}
	for _, category := range CategoriesFor(event.Kind()) {
		if err := r.Fire(ctx, category, cred, event); err != nil {
			return err
		}
	}
	return nil
}

// CategoriesFor lists the categories an event kind is dispatched to, in order.
func CategoriesFor(kind events.Kind) []Category {
	switch kind {
	case events.KindInstalled:
		return []Category{CategoryInstall}
	case events.KindUninstalled:
		return []Category{CategoryUninstall}
	}
	categories := []Category{CategoryEvent}
	switch kind.Family() {
	case events.FamilyRoomMessaging:
		categories = append(categories, CategoryRoomMessaging)
	case events.FamilyRoomVisiting:
		categories = append(categories, CategoryRoomVisiting)
	}
	switch kind {
	case events.KindRoomMessage:
		categories = append(categories, CategoryRoomMessage)
	case events.KindRoomNotification:
		categories = append(categories, CategoryRoomNotification)
	case events.KindRoomTopicChange:
		categories = append(categories, CategoryRoomTopicChange)
	case events.KindRoomEnter:
		categories = append(categories, CategoryRoomEnter)
	case events.KindRoomExit:
		categories = append(categories, CategoryRoomExit)
	}
	return categories
}

func (r *Registry) snapshot(category Category) []registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]registration(nil), r.handlers[category]...)
}

func normalizeCategory(category Category) Category {
	return Category(strings.ToLower(strings.TrimSpace(string(category))))
}
