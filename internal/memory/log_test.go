package memory

import (
	"fmt"
	"testing"
)

type recordingSink struct {
	mirrored []Message
}

func (r *recordingSink) MirrorMessage(m Message) {
	r.mirrored = append(r.mirrored, m)
}

type fakeSummarizer struct {
	calls int
}

func (f *fakeSummarizer) Summarize(systemPrompt string, messages []Message) (Message, error) {
	f.calls++
	return Message{Role: RoleAssistant, Content: fmt.Sprintf("summary of %d messages", len(messages))}, nil
}

func TestAddMessageMirrorsToSink(t *testing.T) {
	sink := &recordingSink{}
	log := New("you are an agent", sink)
	log.AddMessage(Message{Role: RoleUser, Content: "do the thing"})

	if len(sink.mirrored) != 1 || sink.mirrored[0].Content != "do the thing" {
		t.Fatalf("expected mirrored message, got %+v", sink.mirrored)
	}
}

func TestShouldCompact(t *testing.T) {
	if !ShouldCompact(85_000, 100_000, 0.85) {
		t.Fatal("expected compaction to trigger at ratio threshold")
	}
	if ShouldCompact(10_000, 100_000, 0.85) {
		t.Fatal("expected compaction to not trigger well below threshold")
	}
	if ShouldCompact(10_000, 0, 0.85) {
		t.Fatal("expected no compaction with unknown context window")
	}
}

func TestCompactPreservesSystemAndTail(t *testing.T) {
	log := New("system prompt", nil)
	for i := 0; i < 10; i++ {
		log.AddMessage(Message{Role: RoleAssistant, Content: fmt.Sprintf("msg-%d", i)})
	}

	summarizer := &fakeSummarizer{}
	if err := log.Compact(summarizer, 3); err != nil {
		t.Fatal(err)
	}

	msgs := log.Messages()
	if msgs[0].Role != RoleSystem || msgs[0].Content != "system prompt" {
		t.Fatalf("expected system prompt preserved first, got %+v", msgs[0])
	}
	if summarizer.calls != 1 {
		t.Fatalf("expected exactly one summarize call, got %d", summarizer.calls)
	}
	last3 := msgs[len(msgs)-3:]
	if last3[0].Content != "msg-7" || last3[2].Content != "msg-9" {
		t.Fatalf("expected last 3 tail messages preserved verbatim, got %+v", last3)
	}
}

func TestCompactSkipsSummarizeWhenNothingToSummarize(t *testing.T) {
	log := New("system prompt", nil)
	log.AddMessage(Message{Role: RoleUser, Content: "only one"})

	summarizer := &fakeSummarizer{}
	if err := log.Compact(summarizer, 5); err != nil {
		t.Fatal(err)
	}
	if summarizer.calls != 0 {
		t.Fatalf("expected no summarize call when tail covers everything, got %d calls", summarizer.calls)
	}
}
