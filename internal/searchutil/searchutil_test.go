package searchutil

import (
	"reflect"
	"testing"
)

func TestNormalizeFoldsPunctuationAndDiacritics(t *testing.T) {
	cases := map[string]string{
		"  The Witcher: Blood Origin ": "the witcher blood origin",
		"Zażółć gęślą jaźń":            "zazolc gesla jazn",
		"Łódź (2019)":                  "lodz 2019",
		"":                             "",
	}
	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTokenizeNormalizedDropsDuplicates(t *testing.T) {
	got := TokenizeNormalized("dark dark matter")
	want := []string{"dark", "matter"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens: got %v want %v", got, want)
	}
	if TokenizeNormalized("   ") != nil {
		t.Fatal("expected nil tokens for blank input")
	}
}

func TestMatchesQueryRequiresEveryToken(t *testing.T) {
	query := Normalize("matter dark")
	tokens := TokenizeNormalized(query)
	if !MatchesQuery("Dark Matter", query, tokens) {
		t.Fatal("expected token match regardless of order")
	}
	if MatchesQuery("Dark", query, tokens) {
		t.Fatal("expected missing token to fail")
	}
}

func TestTitleScore(t *testing.T) {
	if score := TitleScore("Dark", "dark"); score != 2 {
		t.Fatalf("expected exact score, got %d", score)
	}
	if score := TitleScore("Dark Film", "Dark"); score != 1 {
		t.Fatalf("expected partial score, got %d", score)
	}
	if score := TitleScore("Light", "Dark"); score != 0 {
		t.Fatalf("expected no match, got %d", score)
	}
	if score := TitleScore("Anything", ""); score != 0 {
		t.Fatalf("expected blank query to score 0, got %d", score)
	}
}
