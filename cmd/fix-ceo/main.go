// Command fix-ceo diagnoses the CEO employee record and repairs its link to
// the auth user and its role.
package main

import (
	"context"
	"os"
	"time"

	"ClientMax/Config"
	"ClientMax/Provision"
	"ClientMax/Supabase"
)

func main() {
	p, err := Config.LoadProvisioning(".")
	if err != nil {
		Provision.Report(os.Stderr, err, p)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := Supabase.NewClient(p.SupabaseURL, p.ServiceRoleKey, nil)
	if err := Provision.Fix(ctx, client, p, os.Stdout); err != nil {
		Provision.Report(os.Stderr, err, p)
		cancel()
		os.Exit(1)
	}
}
