package main

import (
	"log"
	"os"
	"strings"

	"github.com/gocql/gocql"
)

// Creates the chat keyspace and every table the services expect. Schema
// migrations proper are out of scope; this is a bootstrap utility.
func main() {
	hostsStr := os.Getenv("SCYLLA_HOSTS")
	if hostsStr == "" {
		hostsStr = "localhost:9042"
	}
	hosts := strings.Split(hostsStr, ",")

	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = "system"
	cluster.Consistency = gocql.Quorum
	sysSession, err := cluster.CreateSession()
	if err != nil {
		log.Fatalf("connect to system keyspace: %v", err)
	}

	err = sysSession.Query(`CREATE KEYSPACE IF NOT EXISTS chat WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	sysSession.Close()
	if err != nil {
		log.Fatalf("create keyspace: %v", err)
	}

	cluster.Keyspace = "chat"
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatalf("connect to chat keyspace: %v", err)
	}
	defer session.Close()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id text PRIMARY KEY,
			username text,
			role text
		)`,
		`CREATE TABLE IF NOT EXISTS channel_members (
			channel_id text,
			user_id text,
			PRIMARY KEY (channel_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			channel_id text,
			id bigint,
			user_id text,
			username text,
			content text,
			timestamp timestamp,
			PRIMARY KEY (channel_id, id)
		) WITH CLUSTERING ORDER BY (id DESC)`,
		`CREATE TABLE IF NOT EXISTS message_reactions (
			channel_id text,
			message_id bigint,
			emoji text,
			user_ids set<text>,
			PRIMARY KEY (channel_id, message_id, emoji)
		)`,
		`CREATE TABLE IF NOT EXISTS channel_activity (
			channel_id text PRIMARY KEY,
			last_message_at timestamp,
			last_user_id text
		)`,
		`CREATE TABLE IF NOT EXISTS unread_counts (
			user_id text,
			channel_id text,
			unread counter,
			PRIMARY KEY (user_id, channel_id)
		)`,
	}

	for _, cql := range tables {
		if err := session.Query(cql).Exec(); err != nil {
			log.Fatalf("create table: %v", err)
		}
	}

	log.Println("chat keyspace and tables created")
}
