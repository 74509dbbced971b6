package planner

import "testing"

func TestExtractFirstJSONObjectPlain(t *testing.T) {
	text := `some preamble {"action":"continue","reasoning":"x"} trailing text`
	got, ok := ExtractFirstJSONObject(text)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if got != `{"action":"continue","reasoning":"x"}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractFirstJSONObjectFenced(t *testing.T) {
	text := "Here is the plan:\n```json\n{\"action\":\"blocked\",\"reasoning\":\"nested { brace } in string\"}\n```\nthanks"
	got, ok := ExtractFirstJSONObject(text)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if got == "" {
		t.Fatal("expected non-empty extraction")
	}
}

func TestExtractFirstJSONObjectNoMatch(t *testing.T) {
	if _, ok := ExtractFirstJSONObject("no json here"); ok {
		t.Fatal("expected no match")
	}
}

func TestFindBalancedObjectHandlesBracesInStrings(t *testing.T) {
	text := `{"reasoning":"use { and } carefully"}`
	got, ok := findBalancedObject(text)
	if !ok || got != text {
		t.Fatalf("expected full match, got %q ok=%v", got, ok)
	}
}
