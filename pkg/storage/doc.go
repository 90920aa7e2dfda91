// Package storage provides the persistence layer for users and campus
// resources. The SQL implementations target PostgreSQL via lib/pq and keep
// their statements portable enough to run against SQLite in tests. In-memory
// implementations back development mode and unit tests.
package storage
