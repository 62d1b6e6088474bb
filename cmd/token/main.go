// Command token mints a staff access token signed with JWT_SECRET, for
// wiring up front-desk clients and for manual testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/iliyamo/table-allocation/internal/config"
	"github.com/iliyamo/table-allocation/internal/utils"
)

func main() {
	staff := flag.String("staff", "", "staff identifier (token subject)")
	role := flag.String("role", utils.RoleStaff, "STAFF or MANAGER")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	config.LoadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("missing required env var: JWT_SECRET")
	}
	r := strings.ToUpper(*role)
	if *staff == "" || (r != utils.RoleStaff && r != utils.RoleManager) {
		flag.Usage()
		os.Exit(2)
	}

	tok, err := utils.NewAccessToken(secret, *staff, r, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
