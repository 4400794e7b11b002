// Package candidate owns the durable list of harvested members.
//
// It deduplicates incoming batches, persists them with insert-or-ignore
// semantics, tracks the one-way "contacted" flag, and answers the queries
// the outreach side needs (uncontacted, reminder-due, sent today).
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// database/sql directly.
package candidate
