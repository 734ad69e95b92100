package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/contactline"
	"github.com/san-kum/contactline/internal/storage"
)

type params struct {
	Constant float64 `json:"ode_constant"`
	XMax     float64 `json:"x_max"`
	Method   string  `json:"method"`
}

func TestKey(t *testing.T) {
	a, err := Key(params{0.01, 50, "shooting"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Key(params{0.01, 50, "shooting"})
	c, _ := Key(params{0.01, 100, "shooting"})

	if a != b {
		t.Error("equal parameters must hash equally")
	}
	if a == c {
		t.Error("different parameters must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %q", a)
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "solves.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	pts := []bvp.Point{
		{X: 0, H: 0, Slope: 1, Curvature: 0.15},
		{X: 1, H: 1.06, Slope: 1.07, Curvature: 0},
	}
	sol, err := bvp.Restore(contactline.New(0.01), bvp.MethodShooting, 1, pts)
	if err != nil {
		t.Fatal(err)
	}
	meta := storage.NewMetadata("k", sol, storage.RunInfo{Integrator: "rk45", Tol: 1e-6, Guard: contactline.DefaultGuard()})

	key, _ := Key(params{0.01, 1, "shooting"})

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Put(ctx, key, meta, sol.Points()); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, key, meta, sol.Points()); err != nil {
		t.Fatalf("second put should upsert: %v", err)
	}

	e, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if e.Meta.Shoot != 0.15 || len(e.Points) != 2 {
		t.Errorf("unexpected entry %+v", e)
	}

	restored, err := e.Solution()
	if err != nil {
		t.Fatal(err)
	}
	if restored.Shoot() != 0.15 || restored.XMax() != 1 {
		t.Errorf("restored shoot=%g xmax=%g", restored.Shoot(), restored.XMax())
	}

	if n, _ := c.Len(ctx); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
	if err := c.Purge(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Len(ctx); n != 0 {
		t.Errorf("Len after purge = %d", n)
	}
}
