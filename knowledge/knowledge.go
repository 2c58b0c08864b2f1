// Package knowledge holds the tables the call-site classifier consults:
// names and pairs known to be synchronous, and methods that must not be
// handed an async callback. A Base is resolved once per analysis run and
// is read-only afterwards, so one Base may be shared by any number of
// goroutines.
package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

type set map[string]struct{}

func newSet(lists ...[]string) set {
	s := make(set)
	for _, list := range lists {
		for _, name := range list {
			s[name] = struct{}{}
		}
	}
	return s
}

func (s set) has(name string) bool {
	_, ok := s[name]
	return ok
}

// Base is the resolved knowledge base.
type Base struct {
	syncMethods            set
	syncFunctions          set
	arrayMethods           set
	asyncCallbackForbidden set
	staticMembers          map[StaticMember]struct{}
}

// Default returns the built-in tables with no caller additions.
func Default() *Base {
	return New(nil)
}

// New unions the built-in tables with opts. A nil opts yields the defaults.
func New(opts *Options) *Base {
	if opts == nil {
		opts = &Options{}
	}

	b := &Base{
		syncMethods:            newSet(defaultSyncMethods, opts.SyncMethods),
		syncFunctions:          newSet(defaultSyncFunctions, opts.SyncFunctions),
		arrayMethods:           newSet(arrayMethods),
		asyncCallbackForbidden: newSet(asyncCallbackForbidden),
		staticMembers:          make(map[StaticMember]struct{}),
	}
	for _, pairs := range [][]StaticMember{defaultNamedStaticMembers, opts.NamedStaticMembers} {
		for _, p := range pairs {
			b.staticMembers[p] = struct{}{}
		}
	}
	return b
}

// Resolve builds a Base from a host options list. Only the first element
// is the rule configuration; later elements are ignored.
func Resolve(options []*Options) *Base {
	if len(options) == 0 {
		return Default()
	}
	return New(options[0])
}

// IsSyncMethod reports whether a method of this name is synchronous on any receiver.
func (b *Base) IsSyncMethod(name string) bool {
	return name != "" && b.syncMethods.has(name)
}

// IsSyncFunction reports whether a free function of this name is synchronous.
func (b *Base) IsSyncFunction(name string) bool {
	return name != "" && b.syncFunctions.has(name)
}

func (b *Base) IsSyncArrayMethod(name string) bool {
	return name != "" && b.arrayMethods.has(name)
}

// ForbidsAsyncCallback reports whether passing an async function literal
// to a method of this name is an error.
func (b *Base) ForbidsAsyncCallback(name string) bool {
	return name != "" && b.asyncCallbackForbidden.has(name)
}

// IsStaticMember reports whether object.member is a known synchronous pair.
func (b *Base) IsStaticMember(object, member string) bool {
	if object == "" || member == "" {
		return false
	}
	_, ok := b.staticMembers[StaticMember{Object: object, Member: member}]
	return ok
}

// Summary describes the table sizes, for verbose output.
func (b *Base) Summary() string {
	return fmt.Sprintf("%d sync methods, %d sync functions, %d static members, %d array methods",
		len(b.syncMethods), len(b.syncFunctions), len(b.staticMembers), len(b.arrayMethods))
}

// Fingerprint identifies the table contents. Two bases with the same
// fingerprint classify every call the same way.
func (b *Base) Fingerprint() string {
	h := sha256.New()
	for _, s := range []set{b.syncMethods, b.syncFunctions, b.arrayMethods, b.asyncCallbackForbidden} {
		for _, name := range s.sorted() {
			h.Write([]byte(name))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}

	pairs := make([]string, 0, len(b.staticMembers))
	for p := range b.staticMembers {
		pairs = append(pairs, p.Object+"\x00"+p.Member)
	}
	sort.Strings(pairs)
	for _, p := range pairs {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s set) sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
