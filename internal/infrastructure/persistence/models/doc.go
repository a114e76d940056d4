// Package models holds the GORM row types of the catalog mirror. Domain
// entities carry no tags; each row type converts with ToDomain/FromDomain.
package models
