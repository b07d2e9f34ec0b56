package main

import (
	"log"
	"os"
	"strings"

	"github.com/gocql/gocql"
)

// Seeds demo users and channels so the terminal client has something to talk
// to. Safe to run repeatedly.
func main() {
	hostsStr := os.Getenv("SCYLLA_HOSTS")
	if hostsStr == "" {
		hostsStr = "localhost:9042"
	}
	hosts := strings.Split(hostsStr, ",")

	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = "chat"
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	users := []struct{ id, username, role string }{
		{"1", "alice", "admin"},
		{"2", "bob", "member"},
		{"3", "carol", "moderator"},
	}
	for _, u := range users {
		if err := session.Query(
			`INSERT INTO users (id, username, role) VALUES (?, ?, ?)`,
			u.id, u.username, u.role,
		).Exec(); err != nil {
			log.Fatalf("seed user %s: %v", u.username, err)
		}
	}

	memberships := map[string][]string{
		"general": {"1", "2", "3"},
		"random":  {"1", "2", "3"},
		"staff":   {"1", "3"},
	}
	for channel, members := range memberships {
		for _, userID := range members {
			if err := session.Query(
				`INSERT INTO channel_members (channel_id, user_id) VALUES (?, ?)`,
				channel, userID,
			).Exec(); err != nil {
				log.Fatalf("seed membership %s/%s: %v", channel, userID, err)
			}
		}
	}

	log.Println("seeded demo users and channels")
}
