// Package memory implements the ordered message log and compaction:
// an append-only {role, content} log with a token-ratio-triggered
// compaction that replaces everything but the system prompt and the most
// recent N messages with a single synthesized summary: keep system and
// tail verbatim, summarize the middle.
package memory

// Role identifies who authored a message in the log.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the ordered log.
type Message struct {
	Role    Role
	Content string
}

// Sink mirrors each appended message to an external log, best-effort;
// AddMessage calls it synchronously, and a nil Sink is a valid no-op.
type Sink interface {
	MirrorMessage(m Message)
}

// Summarizer produces a single summary message over everything except the
// preserved tail, via a dedicated LLM call.
type Summarizer interface {
	Summarize(systemPrompt string, messages []Message) (Message, error)
}

// Log is the run's ordered message log.
type Log struct {
	messages []Message
	sink     Sink
}

// New returns an empty Log seeded with systemPrompt as the first message.
func New(systemPrompt string, sink Sink) *Log {
	l := &Log{sink: sink}
	l.messages = append(l.messages, Message{Role: RoleSystem, Content: systemPrompt})
	return l
}

// AddMessage appends m to the log and mirrors it to the sink, if any.
func (l *Log) AddMessage(m Message) {
	l.messages = append(l.messages, m)
	if l.sink != nil {
		l.sink.MirrorMessage(m)
	}
}

// Messages returns the current ordered log. The returned slice is owned by
// the caller; callers must not mutate the Log's backing array through it.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len reports the number of messages currently in the log.
func (l *Log) Len() int {
	return len(l.messages)
}

// SystemPrompt returns the log's original system prompt, preserved across
// compactions.
func (l *Log) SystemPrompt() string {
	for _, m := range l.messages {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// ShouldCompact reports whether the planner's most recent input token usage
// against the model's context window meets compactionTriggerRatio.
func ShouldCompact(inputTokens, modelContextWindow int, compactionTriggerRatio float64) bool {
	if modelContextWindow <= 0 {
		return false
	}
	return float64(inputTokens)/float64(modelContextWindow) >= compactionTriggerRatio
}

// Compact replaces the log with: the system prompt, a synthesized summary
// over everything except the preserved tail, and that tail verbatim.
func (l *Log) Compact(summarizer Summarizer, preserveRecentMessages int) error {
	systemPrompt := l.SystemPrompt()

	nonSystem := make([]Message, 0, len(l.messages))
	for _, m := range l.messages {
		if m.Role != RoleSystem {
			nonSystem = append(nonSystem, m)
		}
	}

	tailStart := len(nonSystem) - preserveRecentMessages
	if tailStart < 0 {
		tailStart = 0
	}
	toSummarize := nonSystem[:tailStart]
	tail := nonSystem[tailStart:]

	compacted := make([]Message, 0, len(tail)+2)
	compacted = append(compacted, Message{Role: RoleSystem, Content: systemPrompt})

	if len(toSummarize) > 0 {
		summary, err := summarizer.Summarize(systemPrompt, toSummarize)
		if err != nil {
			return err
		}
		compacted = append(compacted, summary)
	}
	compacted = append(compacted, tail...)

	l.messages = compacted
	return nil
}
