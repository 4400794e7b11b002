// Package outreach sends templated direct messages to stored candidates.
//
// A batch walks its candidates in order and gives each one a terminal
// outcome: skipped, sent, or failed. Sends are paced, capped per day, and
// cooled down or halted on platform push-back.
package outreach
