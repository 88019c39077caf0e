package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// storeFactories lets every Store implementation run the same contract
// tests.
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store {
		return NewMemoryStore()
	},
	"sqlite": func(t *testing.T) Store {
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		return store
	},
}

func sampleRecord(ruleName string, at time.Time) *Record {
	record := NewRecord(ruleName, "PH")
	record.Inputs = map[string]interface{}{"gross_income": 500000.0}
	record.Outputs = map[string]interface{}{"taxable_income": 250000.0}
	record.Liability = 62500
	record.Duration = 3 * time.Millisecond
	record.EvaluatedAt = at
	return record
}

func TestStoreSaveAndGet(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			record := sampleRecord("flat_income_tax", time.Now().UTC())
			if err := store.Save(ctx, record); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := store.Get(ctx, record.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.RuleName != "flat_income_tax" || got.Jurisdiction != "PH" {
				t.Errorf("identity = %s/%s", got.RuleName, got.Jurisdiction)
			}
			if got.Liability != 62500 {
				t.Errorf("Liability = %v, want 62500", got.Liability)
			}
			if got.Inputs["gross_income"] != 500000.0 {
				t.Errorf("Inputs = %v", got.Inputs)
			}
			if got.Outputs["taxable_income"] != 250000.0 {
				t.Errorf("Outputs = %v", got.Outputs)
			}
			if got.Duration != 3*time.Millisecond {
				t.Errorf("Duration = %v", got.Duration)
			}
			if !got.Succeeded() {
				t.Error("record should report success")
			}
		})
	}
}

func TestStoreGetUnknownID(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			_, err := store.Get(context.Background(), "no-such-id")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreSaveRejectsInvalidRecords(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			if err := store.Save(ctx, nil); err == nil {
				t.Error("nil record should be rejected")
			}
			if err := store.Save(ctx, &Record{}); err == nil {
				t.Error("record without ID should be rejected")
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			base := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
			older := sampleRecord("flat_income_tax", base)
			newer := sampleRecord("flat_income_tax", base.Add(time.Hour))
			other := sampleRecord("vat", base.Add(2*time.Hour))

			for _, record := range []*Record{older, newer, other} {
				if err := store.Save(ctx, record); err != nil {
					t.Fatalf("Save: %v", err)
				}
			}

			all, err := store.List(ctx, ListFilter{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("len(all) = %d, want 3", len(all))
			}
			// Newest first.
			if all[0].ID != other.ID {
				t.Errorf("all[0].ID = %s, want %s", all[0].ID, other.ID)
			}

			byRule, err := store.List(ctx, ListFilter{RuleName: "flat_income_tax"})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(byRule) != 2 {
				t.Errorf("len(byRule) = %d, want 2", len(byRule))
			}

			since, err := store.List(ctx, ListFilter{Since: base.Add(30 * time.Minute)})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(since) != 2 {
				t.Errorf("len(since) = %d, want 2", len(since))
			}

			limited, err := store.List(ctx, ListFilter{Limit: 1})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(limited) != 1 {
				t.Errorf("len(limited) = %d, want 1", len(limited))
			}
		})
	}
}

func TestStoreFailedEvaluation(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			ctx := context.Background()

			record := NewRecord("flat_income_tax", "PH")
			record.Inputs = map[string]interface{}{"gross_income": -1.0}
			record.Error = `input "gross_income": value -1 is below the minimum 0`

			if err := store.Save(ctx, record); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := store.Get(ctx, record.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Succeeded() {
				t.Error("failed evaluation should not report success")
			}
			if got.Outputs != nil {
				t.Errorf("Outputs = %v, want nil", got.Outputs)
			}
		})
	}
}

func TestNewRecordAssignsUniqueIDs(t *testing.T) {
	a := NewRecord("r", "PH")
	b := NewRecord("r", "PH")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("IDs = %q, %q; want distinct non-empty", a.ID, b.ID)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	record := sampleRecord("flat_income_tax", time.Now().UTC())
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Liability != record.Liability {
		t.Errorf("Liability = %v, want %v", got.Liability, record.Liability)
	}
}
