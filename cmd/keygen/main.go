package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/spec-kit/book-store-service/internal/auth"
)

func main() {
	dir := flag.String("out", "keys", "directory to write private.pem and public.pem into")
	bits := flag.Int("bits", auth.MinKeyBits, "RSA modulus size")
	force := flag.Bool("force", false, "overwrite existing keys")
	flag.Parse()

	privatePath := filepath.Join(*dir, "private.pem")
	publicPath := filepath.Join(*dir, "public.pem")
	if !*force {
		if _, err := os.Stat(privatePath); err == nil {
			log.Fatalf("%s already exists; pass -force to overwrite", privatePath)
		}
	}

	privatePEM, publicPEM, err := auth.GenerateKeyPEM(*bits)
	if err != nil {
		log.Fatalf("failed to generate keys: %v", err)
	}
	if err := os.MkdirAll(*dir, 0o700); err != nil {
		log.Fatalf("failed to create %s: %v", *dir, err)
	}
	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		log.Fatalf("failed to write private key: %v", err)
	}
	if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
		log.Fatalf("failed to write public key: %v", err)
	}
	log.Printf("wrote %s and %s", privatePath, publicPath)
}
