package cli

import (
	"fmt"

	"github.com/hbjs97/flakenv/internal/config"
	"github.com/hbjs97/flakenv/internal/flakekey"
	"github.com/hbjs97/flakenv/internal/loader"
	"github.com/hbjs97/flakenv/internal/nix"
	"github.com/hbjs97/flakenv/internal/profile"
	"github.com/hbjs97/flakenv/internal/state"
)

// services는 한 명령 실행 동안 쓰이는 저장소와 Loader 묶음이다.
type services struct {
	cfg      *config.Config
	profiles *profile.Cache
	states   *state.Store
	loader   *loader.Loader
}

func (a *App) open() (*services, error) {
	cfg, err := config.Load(a.CfgPath)
	if err != nil {
		return nil, err
	}
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	logger := a.logger()
	profiles := profile.New(backend, profile.WithLogger(logger))
	states := state.NewStore(cfg.StateDir, state.WithLogger(logger))
	return &services{
		cfg:      cfg,
		profiles: profiles,
		states:   states,
		loader: &loader.Loader{
			States:    states,
			Profiles:  profiles,
			Builder:   a.builder(cfg),
			Environ:   a.environ,
			MergeVars: cfg.MergePathVars,
			Watch:     cfg.Watch,
			Timeout:   cfg.BuildTimeout(),
			Logger:    logger,
		},
	}, nil
}

func (s *services) Close() error {
	return s.profiles.Close()
}

func openBackend(cfg *config.Config) (profile.Backend, error) {
	switch cfg.CacheBackend {
	case config.BackendSQLite:
		return profile.OpenSQLite(cfg.ProfilesPath())
	case config.BackendFile:
		return profile.NewFileBackend(cfg.ProfilesPath())
	default:
		return nil, fmt.Errorf("cli.openBackend: %w: cache_backend %q", ErrConfig, cfg.CacheBackend)
	}
}

func (a *App) builder(cfg *config.Config) loader.Builder {
	if a.Builder != nil {
		return a.Builder
	}
	b := nix.NewBuilder(a.Commander)
	b.Args = cfg.NixArgs
	b.GCRootDir = cfg.GCRootDir()
	b.Logger = a.logger()
	return b
}

// currentFlake는 flag가 있으면 그 참조를, 없으면 작업 디렉토리에서 찾은 flake를 반환한다.
// 어느 쪽도 없으면 nil.
func (a *App) currentFlake(flag string) (*flakekey.Reference, error) {
	if flag != "" {
		ref, err := flakekey.ParseReference(flag)
		if err != nil {
			return nil, fmt.Errorf("cli.currentFlake: %w", err)
		}
		return &ref, nil
	}
	cwd, err := a.getwd()
	if err != nil {
		return nil, fmt.Errorf("cli.currentFlake: %w", err)
	}
	root, ok := flakekey.Discover(cwd)
	if !ok {
		return nil, nil
	}
	ref := flakekey.LocalReference(root)
	return &ref, nil
}

// requireFlake는 currentFlake와 같지만 flake가 없으면 ErrNoFlake를 반환한다.
func (a *App) requireFlake(flag string) (flakekey.Reference, error) {
	ref, err := a.currentFlake(flag)
	if err != nil {
		return flakekey.Reference{}, err
	}
	if ref == nil {
		return flakekey.Reference{}, ErrNoFlake
	}
	return *ref, nil
}
