package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/etnz/tradesim"
	"go.uber.org/zap"
)

// Environment passed to extensions. The configuration reads them back.
const (
	EnvConfig  = "TSIM_CONFIG"
	EnvServer  = "TSIM_SERVER"
	EnvSession = "TSIM_SESSION"
	EnvVerbose = "TSIM_VERBOSE"
)

// RunExtension attempts to find and execute an external tsim-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
func RunExtension(subcommand string, args []string) (bool, int) {
	name := "tsim-" + subcommand
	lp, err := exec.LookPath(name)
	if err != nil {
		tradesim.Logger().Debug("no extension", zap.String("command", name), zap.Error(err))
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extensionEnv()...)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return true, exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}

// extensionEnv passes the global flags that were set on.
func extensionEnv() []string {
	var env []string
	for k, v := range map[string]string{EnvConfig: *configFile, EnvServer: *serverURL, EnvSession: *sessionFile} {
		if v != "" {
			env = append(env, k+"="+v)
		}
	}
	return append(env, EnvVerbose+"="+strconv.FormatBool(*Verbose))
}
