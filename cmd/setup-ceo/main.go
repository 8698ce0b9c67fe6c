// Command setup-ceo creates the CEO auth user and employee record and links
// them. Run from the repository root; backend/.env is read when the
// Supabase secrets are not set in the environment.
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
	if err := Provision.Setup(ctx, client, p, os.Stdout); err != nil {
		Provision.Report(os.Stderr, err, p)
		cancel()
		os.Exit(1)
	}
}
