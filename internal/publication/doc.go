// Package publication tracks, per workspace, when each file was last
// pushed to each publishing platform and where it lives remotely.
//
// Every workspace root owns one SQLite database at
// <root>/.polypress/database.db holding one row per (file, platform)
// pair. Rows are seeded lazily the first time a file is listed and are
// never deleted by normal operation.
//
// A Registry caches one Store per resolved root for the life of the
// process. Service.Touch records a local submission and then hands the
// file's text to a Pusher without waiting for the remote outcome.
package publication
