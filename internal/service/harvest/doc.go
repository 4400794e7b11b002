// Package harvest collects candidates from group member lists.
//
// It pages through a group's members behind the shared call pacer, maps and
// filters every member as it arrives, and stops on target, short page, skip
// request, closed group, or too many consecutive failures. On top of that it
// finds groups for a niche, screens them for recent activity, and harvests
// wall comments.
//
// The service depends on the Source, Persister, Ledger, and Exporter
// interfaces defined in this package; the VK client and the SQLite
// repositories satisfy them.
package harvest
