package main

import (
	"flag"
	"fmt"
	"log"

	"go-outreach-automation/internal/browser"
)

func main() {
	path := flag.String("path", ".cookies/cookies.json", "cookie export file")
	flag.Parse()

	fmt.Println("🍪 Testing cookie loading...")

	cookies, err := browser.LoadCookies(*path)
	if err != nil {
		log.Fatalf("Failed to load cookies: %v", err)
	}

	fmt.Printf("✅ Loaded %d cookies\n", len(cookies))

	domains := make(map[string]int)
	for _, c := range cookies {
		if c.Domain != nil {
			domains[*c.Domain]++
		}
	}
	for d, n := range domains {
		fmt.Printf("   %s: %d\n", d, n)
	}
}
