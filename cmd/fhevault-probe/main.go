// Command fhevault-probe is a diagnostic helper for FHEVault deployments.
// It initializes a client against the configured collaborator and runs
// one operation per invocation, printing JSON to stdout.
//
// Configuration comes from the environment: FHEVAULT_API_KEY,
// FHEVAULT_URL and optionally FHEVAULT_TFHE_MODULE.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	fhevault "github.com/fhevault/client-go"
	"github.com/fhevault/client-go/passgen"
)

func main() {
	if len(os.Args) < 2 {
		fatal("usage: fhevault-probe <status|roundtrip|strength|export|generate> [args]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	opts := []fhevault.Option{fhevault.WithLogger(log)}
	if url := os.Getenv("FHEVAULT_URL"); url != "" {
		opts = append(opts, fhevault.WithBaseURL(url))
	}

	client, err := fhevault.New(os.Getenv("FHEVAULT_API_KEY"), opts...)
	if err != nil {
		fatal("create client: %v", err)
	}
	defer client.Close()

	if err := client.Initialize(ctx); err != nil {
		fatal("initialize: %v", err)
	}

	switch os.Args[1] {
	case "status":
		printStatus(ctx, client)
	case "roundtrip":
		roundtrip(ctx, client)
	case "strength":
		if len(os.Args) < 3 {
			fatal("usage: fhevault-probe strength <password>")
		}
		strength(ctx, client, os.Args[2])
	case "export":
		if len(os.Args) < 4 {
			fatal("usage: fhevault-probe export <path> <password>")
		}
		export(ctx, client, os.Args[2], os.Args[3])
	case "generate":
		generate()
	default:
		fatal("unknown command: %s", os.Args[1])
	}
}

func printStatus(ctx context.Context, client *fhevault.Client) {
	status, err := client.Status(ctx)
	if err != nil {
		fatal("status: %v", err)
	}
	emit(status)
}

// roundtrip encrypts and decrypts a probe value, confirming the backend
// and keypair work end to end.
func roundtrip(ctx context.Context, client *fhevault.Client) {
	const probe = "fhevault-probe-roundtrip"
	env, err := client.EncryptPassword(ctx, probe)
	if err != nil {
		fatal("encrypt: %v", err)
	}
	got, err := client.DecryptPassword(ctx, env)
	if err != nil {
		fatal("decrypt: %v", err)
	}
	emit(map[string]interface{}{
		"ok":      got == probe,
		"backend": env.Kind,
	})
}

func strength(ctx context.Context, client *fhevault.Client, password string) {
	result, err := client.CheckPasswordStrength(ctx, password)
	if err != nil {
		fatal("strength check: %v", err)
	}
	emit(result)
}

func export(ctx context.Context, client *fhevault.Client, path, password string) {
	if err := client.ExportKeysToFile(ctx, path, password); err != nil {
		fatal("export keys: %v", err)
	}
	emit(map[string]interface{}{"ok": true, "path": path})
}

func generate() {
	pw, err := passgen.Generate(passgen.DefaultPolicy())
	if err != nil {
		fatal("generate: %v", err)
	}
	emit(map[string]string{"password": pw})
}

func emit(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode output: %v", err)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
