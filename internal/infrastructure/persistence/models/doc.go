// Package models contains GORM persistence models that map to database tables.
// They are kept separate from domain types so the domain layer stays free of
// ORM tags; repositories load models and convert them with ToDomain.
package models
