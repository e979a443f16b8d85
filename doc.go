// Package fhevault is the official Go SDK for FHEVault, a
// privacy-preserving password service built on fully homomorphic
// encryption.
//
// Passwords are encrypted on the client before anything leaves the
// process: the collaborator service scores strength and answers search
// queries over ciphertext only. When the TFHE engine is unavailable the
// client degrades to a simulated AES-GCM backend that preserves the full
// API surface, and Status reports the degradation.
//
// Basic usage:
//
//	client, err := fhevault.New(apiKey)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	ctx := context.Background()
//	if err := client.Initialize(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	env, err := client.EncryptPassword(ctx, "hunter2")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.CheckPasswordStrength(ctx, "hunter2")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.Score, result.ComputedOn)
//
// Keypairs are wrapped with a key derived from the device fingerprint
// and persisted locally. They expire after seven days; ExportKeys and
// ImportKeys move them between devices under a password.
package fhevault

// Version is the SDK version reported to the collaborator.
const Version = "0.4.2"
