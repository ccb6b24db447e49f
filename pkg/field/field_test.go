package field

import "testing"

func TestLookupCaseInsensitive(t *testing.T) {
	id, ok := Lookup("content-length")
	if !ok {
		t.Fatal("expected content-length to resolve")
	}
	if id != ContentLength {
		t.Errorf("got %v, want ContentLength", id)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("X-Made-Up-Header"); ok {
		t.Error("expected unknown header to not resolve")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	tbl := New()
	if err := tbl.Set(ContentType, "application/json"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := tbl.Get(ContentType); got != "application/json" {
		t.Errorf("got %q, want application/json", got)
	}
}

func TestAppendableFieldsAccumulate(t *testing.T) {
	tbl := New()
	if err := tbl.Set(Allow, "GET"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Set(Allow, "POST"); err != nil {
		t.Fatal(err)
	}
	if got, want := tbl.Get(Allow), "GET, POST"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNonAppendableFieldsOverwrite(t *testing.T) {
	tbl := New()
	if err := tbl.Set(ContentType, "text/plain"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Set(ContentType, "application/json"); err != nil {
		t.Fatal(err)
	}
	if got, want := tbl.Get(ContentType), "application/json"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultsUsedUntilOverridden(t *testing.T) {
	tbl := New()
	if err := tbl.SetDefault(UserAgent, "httpcore/1.0"); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Get(UserAgent); got != "httpcore/1.0" {
		t.Errorf("got %q, want default", got)
	}
	if err := tbl.Set(UserAgent, "custom/2.0"); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Get(UserAgent); got != "custom/2.0" {
		t.Errorf("got %q, want override", got)
	}
}

func TestSetDefaultRejectsNonDefaultableField(t *testing.T) {
	tbl := New()
	if err := tbl.SetDefault(ContentType, "text/plain"); err == nil {
		t.Error("expected error setting default on non-defaultable field")
	}
}

func TestClearIsIdempotentAndPreservesDefaults(t *testing.T) {
	tbl := New()
	_ = tbl.SetDefault(Server, "httpcore")
	_ = tbl.Set(ContentType, "text/html")
	tbl.Clear()
	tbl.Clear()
	if tbl.Get(ContentType) != "" {
		t.Error("expected explicit value cleared")
	}
	if tbl.Get(Server) != "httpcore" {
		t.Error("expected default to survive Clear")
	}
}

func TestHostFieldBracketsBareIPv6(t *testing.T) {
	tbl := New()
	if err := tbl.Set(Host, "::1"); err != nil {
		t.Fatal(err)
	}
	if got, want := tbl.Get(Host), "[::1]"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHostFieldStripsTrailingDot(t *testing.T) {
	tbl := New()
	if err := tbl.Set(Host, "example.com."); err != nil {
		t.Fatal(err)
	}
	if got, want := tbl.Get(Host), "example.com"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInlineVsHeapStorage(t *testing.T) {
	tbl := New()
	short := "short-value"
	long := make([]byte, InlineCapacity+10)
	for i := range long {
		long[i] = 'a'
	}
	if err := tbl.Set(ContentType, short); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Set(ContentVersion, string(long)); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Get(ContentType); got != short {
		t.Errorf("inline value corrupted: got %q", got)
	}
	if got := tbl.Get(ContentVersion); got != string(long) {
		t.Error("heap value corrupted")
	}
}

func TestEntriesSortedByID(t *testing.T) {
	tbl := New()
	_ = tbl.Set(UserAgent, "a")
	_ = tbl.Set(ContentType, "b")
	entries := tbl.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID > entries[i].ID {
			t.Fatal("entries not sorted by ID")
		}
	}
}
