package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/tokens"
)

// token_gen mints a development access token for calling the API by hand.
func main() {
	userID := flag.String("user", "00000000-0000-0000-0000-000000000002", "user id (sub)")
	tenantID := flag.String("tenant", "00000000-0000-0000-0000-000000000001", "tenant id")
	projects := flag.String("projects", "", "comma-separated project ids; empty means tenant-wide")
	flag.Parse()

	for _, id := range []string{*userID, *tenantID} {
		if _, err := uuid.Parse(id); err != nil {
			log.Fatalf("invalid id %q: %v", id, err)
		}
	}

	key := os.Getenv("JWT_SIGNING_KEY")
	if key == "" {
		key = "dev-secret-do-not-use-in-prod"
	}

	var scope []string
	for _, p := range strings.Split(*projects, ",") {
		if p = strings.TrimSpace(p); p != "" {
			scope = append(scope, p)
		}
	}

	token, err := tokens.NewManager(key).GenerateAccessToken(*userID, *tenantID, scope)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	fmt.Println(token)
}
