// Package domain defines the core business types for the leadharvest pipeline.
//
// Types in this package are pure value objects with no database dependencies
// and no transport concerns. They are the shared language between the VK
// client, services, repositories and the CLI.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Pure derived values (age, activity, profile URL) are allowed
//   - Constants and enums belong here
package domain
