package modkit

import (
	"testing"

	"telewarehouse/internal/platform/config"
	"telewarehouse/internal/platform/store"
)

func TestDeps_ZeroValue_IsOK(t *testing.T) {
	t.Parallel()
	var d Deps
	if !d.ZeroOK() {
		t.Fatal("zero-value Deps should be safe in tests (ZeroOK == true)")
	}
}

func TestDeps_FromStore(t *testing.T) {
	t.Parallel()
	d := Deps{Cfg: config.New()}

	if got := d.FromStore(nil); got.PG != nil || got.CH != nil {
		t.Fatalf("nil store should leave seams nil")
	}
	if got := d.FromStore(&store.Store{}); got.PG != nil || got.CH != nil {
		t.Fatalf("empty store should leave seams nil")
	}
}
