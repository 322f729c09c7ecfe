package config

import "testing"

func TestNormalizeDefaults(t *testing.T) {
	s := Settings{OutputDir: " /videos "}.Normalize()
	if s.OutputDir != "/videos" {
		t.Fatalf("output dir not trimmed: %q", s.OutputDir)
	}
	if s.TmpDir == "" {
		t.Fatal("tmp dir default missing")
	}
	if s.MaxParallel != DefaultMaxParallel {
		t.Fatalf("max parallel = %d, want default %d", s.MaxParallel, DefaultMaxParallel)
	}
}

func TestNormalizeClampsParallelism(t *testing.T) {
	if got := (Settings{OutputDir: "x", MaxParallel: 99}).Normalize().MaxParallel; got != MaxParallel {
		t.Fatalf("high value clamped to %d, want %d", got, MaxParallel)
	}
	if got := (Settings{OutputDir: "x", MaxParallel: -5}).Normalize().MaxParallel; got != MinParallel {
		t.Fatalf("negative value clamped to %d, want %d", got, MinParallel)
	}
	if got := (Settings{OutputDir: "x", LimitMBps: -1}).Normalize().LimitMBps; got != 0 {
		t.Fatalf("negative limit normalized to %v, want 0", got)
	}
}

func TestValidateRequiresOutputDir(t *testing.T) {
	if err := (Settings{}.Normalize()).Validate(); err == nil {
		t.Fatal("expected error for missing output dir")
	}
	if err := (Settings{OutputDir: "/videos"}.Normalize()).Validate(); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}
}
