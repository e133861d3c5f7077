package dbtype

import "testing"

func u32(v uint32) *uint32 { return &v }
func u64(v uint64) *uint64 { return &v }

func TestPoolOptionsValidate(t *testing.T) {
	cases := []struct {
		name    string
		opts    PoolOptions
		wantErr bool
	}{
		{"all unset", PoolOptions{}, false},
		{"positive values", PoolOptions{MaxConnections: u32(10), MinConnections: u32(1)}, false},
		{"min equals max", PoolOptions{MaxConnections: u32(5), MinConnections: u32(5)}, false},
		{"zero max", PoolOptions{MaxConnections: u32(0)}, true},
		{"zero idle timeout", PoolOptions{IdleTimeoutSecs: u64(0)}, true},
		{"min greater than max", PoolOptions{MaxConnections: u32(2), MinConnections: u32(3)}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.opts.Validate()
			if c.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !c.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEffectiveMaxConnectionsSQLiteDefault(t *testing.T) {
	var o PoolOptions
	if got := o.EffectiveMaxConnections(BackendSQLite); got != 1 {
		t.Fatalf("expected sqlite default 1, got %d", got)
	}
	if got := o.EffectiveMaxConnections(BackendPostgres); got != 10 {
		t.Fatalf("expected default 10, got %d", got)
	}
}

func TestBackendFromScheme(t *testing.T) {
	cases := map[string]BackendKind{
		"postgres":      BackendPostgres,
		"postgresql":    BackendPostgres,
		"mysql":         BackendMySQL,
		"mariadb":       BackendMySQL,
		"sqlite":        BackendSQLite,
		"sqlite:memory": BackendSQLite,
		"mongodb":       BackendUnknown,
	}
	for scheme, want := range cases {
		if got := BackendFromScheme(scheme); got != want {
			t.Errorf("BackendFromScheme(%q) = %v, want %v", scheme, got, want)
		}
	}
}
