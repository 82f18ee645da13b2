package cmd

import (
	"runtime"

	"github.com/Norgate-AV/irscan/internal/cache"
	"github.com/Norgate-AV/irscan/internal/config"
	"github.com/Norgate-AV/irscan/internal/logging"
	"github.com/Norgate-AV/irscan/internal/toolchain"
)

// hostOS is the platform toolchains are detected for.
var hostOS = runtime.GOOS

// detectToolchain builds the toolchain profile for the host.
func detectToolchain(cfg *config.Config) (*toolchain.Profile, toolchain.Env, error) {
	env := toolchain.OSEnv()

	profile, err := toolchain.Detect(env, hostOS, toolchain.Options{
		Compiler:     cfg.Compiler,
		DLLLibraries: cfg.DLLLibraries,
	})
	if err != nil {
		return nil, nil, err
	}

	return profile, env, nil
}

// openCache returns the configured cache, or a disabled one when caching
// is turned off.
func openCache(cfg *config.Config) (*cache.Cache, error) {
	if cfg.NoCache {
		return cache.Disabled(), nil
	}

	dir := cfg.CacheDir
	if dir == "" {
		d, err := cache.DefaultDir()
		if err != nil {
			logging.Debug().
				Add(logging.Component("cache")).
				Add(logging.ErrorField(err)).
				Msg("no home directory, caching disabled")
			return cache.Disabled(), nil
		}
		dir = d
	}

	return cache.Open(dir)
}
