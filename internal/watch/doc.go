// Package watch holds the domain model for the competitor-watch service:
// tracked entities, content snapshots, change records, and the capability
// interfaces (Store, Acquirer, Classifier, ArchiveStore, Notifier) that the
// pipeline components implement or consume.
package watch
