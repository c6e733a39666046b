package main

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ammar0144/repokit/internal/models"
)

var firstNames = []string{"Ada", "Boris", "Chen", "Dina", "Emil", "Fatima", "Goran", "Hana", "Ivan", "Jun"}

var lastNames = []string{"Lovelace", "Petrov", "Wei", "Haddad", "Novak", "Rahman", "Kovac", "Sato", "Orlov", "Park"}

// demoUsers builds n users with unique emails and random passwords
func demoUsers(n int) []*models.User {
	run := uuid.NewString()[:8]
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		first := firstNames[i%len(firstNames)]
		last := lastNames[(i/len(firstNames)+i)%len(lastNames)]
		users = append(users, &models.User{
			FullName: first + " " + last,
			Email:    fmt.Sprintf("%s.%s.%d.%s@example.com", first, last, i, run),
			Password: uuid.NewString(),
			Age:      18 + (i*7)%50,
			Status:   models.StatusActive,
		})
	}
	return users
}
