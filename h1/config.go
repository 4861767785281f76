package h1

import "time"

// ContentTypePolicy governs what happens when a message declares more than
// one Content-Type header (spec §4.1).
type ContentTypePolicy int

const (
	ContentTypeError ContentTypePolicy = iota
	ContentTypeFirst
	ContentTypeLast
	ContentTypeNone
)

// LeniencyMode governs how illegal header names/values are handled.
type LeniencyMode int

const (
	LeniencyError LeniencyMode = iota
	LeniencyWarn
	LeniencyIgnore
)

// Config collects the parser/renderer bounds and policy knobs from spec §6.
// A zero Config is not directly usable; callers should start from
// DefaultConfig and override specific fields.
type Config struct {
	MaxContentLength       int64
	MaxHeaderCount         int
	MaxHeaderNameLength    int
	MaxHeaderValueLength   int
	MaxURILength           int
	MaxMethodLength        int
	MaxResponseReasonLength int
	MaxChunkSize           int
	MaxChunkExtLength      int
	MaxCommentParsingDepth int

	HeaderCacheCapacityPerName int
	HeaderCacheNodeBudget      int

	IllegalHeaderMode          LeniencyMode
	IllegalHeaderNameMode      LeniencyMode
	IllegalHeaderValueMode     LeniencyMode
	ConflictingContentType     ContentTypePolicy
	IgnoreIllegalHeaderFor     map[string]bool

	ModeledHeaderParsing bool

	TransparentHEAD bool

	RequestTimeout time.Duration
}

// DefaultConfig mirrors the conservative RFC 7230 defaults the renderer and
// parser assume when a caller builds a Config with only a few overrides.
func DefaultConfig() Config {
	return Config{
		MaxContentLength:        8 << 20,
		MaxHeaderCount:          64,
		MaxHeaderNameLength:     64,
		MaxHeaderValueLength:    8192,
		MaxURILength:            8192,
		MaxMethodLength:         16,
		MaxResponseReasonLength: 256,
		MaxChunkSize:            1 << 20,
		MaxChunkExtLength:       256,
		MaxCommentParsingDepth:  3,

		HeaderCacheCapacityPerName: 12,
		HeaderCacheNodeBudget:      4096,

		IllegalHeaderMode:      LeniencyError,
		IllegalHeaderNameMode:  LeniencyError,
		IllegalHeaderValueMode: LeniencyError,
		ConflictingContentType: ContentTypeError,
		IgnoreIllegalHeaderFor: map[string]bool{},

		ModeledHeaderParsing: true,
		TransparentHEAD:      false,
		RequestTimeout:       0,
	}
}
