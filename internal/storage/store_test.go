package storage

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	logx "chorebot/pkg/logx"
)

func strPtr(v string) *string { return &v }

func sampleSnapshot() Snapshot {
	return Snapshot{
		Chores: []ChoreRecord{
			{
				Title:     "Bins",
				Schedule:  &ScheduleRecord{Frequency: "weekly", Interval: 1},
				Assignee:  strPtr("100"),
				DueDate:   strPtr("2025-01-06"),
				MessageID: 42,
			},
			{Title: "Descale kettle"},
			{Title: "Water plants", Schedule: &ScheduleRecord{Frequency: "every_n_days", Interval: 3}, DueDate: strPtr("2025-02-01")},
		},
		Roster: []RosterRecord{
			{Participant: "100", Glyph: "🟢", Name: "ann"},
			{Participant: "200", Glyph: "🔵"},
		},
		ChoreChannel:    &ChannelRecord{ChatID: -1001, ThreadID: 7},
		ReminderChannel: &ChannelRecord{ChatID: -1002},
	}
}

func openTestStore(t *testing.T, driver string) (Store, string) {
	t.Helper()
	name := "chorebot.json"
	if driver == "sqlite" {
		name = "chorebot.db"
	}
	path := filepath.Join(t.TempDir(), "data", name)
	st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	return st, path
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite", "memory"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st, path := openTestStore(t, driver)

			empty, err := st.Load(ctx)
			if err != nil {
				t.Fatalf("Load empty: %v", err)
			}
			if len(empty.Chores) != 0 || len(empty.Roster) != 0 || empty.ChoreChannel != nil {
				t.Fatalf("fresh store not empty: %+v", empty)
			}

			want := sampleSnapshot()
			if err := st.Save(ctx, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := st.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
			}

			// Save replaces, never merges.
			want.Chores = want.Chores[1:2]
			want.Roster = nil
			want.ReminderChannel = nil
			if err := st.Save(ctx, want); err != nil {
				t.Fatalf("second Save: %v", err)
			}
			got, err = st.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("replaced snapshot mismatch (-want +got):\n%s", diff)
			}
			if err := st.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			if driver == "memory" {
				return
			}
			reopened, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer reopened.Close()
			got, err = reopened.Load(ctx)
			if err != nil {
				t.Fatalf("Load after reopen: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("snapshot lost across restart (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileStoreAudit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, path := openTestStore(t, "file")
	defer st.Close()

	for _, action := range []string{"chore.add", "chore.delete"} {
		if err := st.AppendAudit(ctx, AuditEntry{Action: action, Target: "Bins", ActorID: 100}); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(filepath.Dir(path), "chorebot.audit.jsonl"))
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
	}
	if lines != 2 {
		t.Fatalf("audit lines = %d, want 2", lines)
	}
}

func TestFileStoreLeavesNoTempFile(t *testing.T) {
	t.Parallel()
	st, path := openTestStore(t, "file")
	defer st.Close()
	if err := st.Save(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for file driver without path")
	}
}
