package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"go-outreach-automation/internal/config"
)

// Stores the account password in the OS keyring so it can stay out of
// config files and the environment.
func main() {
	login := flag.String("login", os.Getenv("LOGIN"), "account login")
	flag.Parse()

	if *login == "" {
		log.Fatal("-login or LOGIN is required")
	}

	fmt.Printf("🔑 Password for %s: ", *login)
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		log.Fatalf("Failed to read password: %v", err)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		log.Fatal("empty password")
	}

	if err := keyring.Set(config.KeyringService, *login, password); err != nil {
		log.Fatalf("❌ Failed to store password: %v", err)
	}
	fmt.Println("✅ Password stored in keyring")
}
