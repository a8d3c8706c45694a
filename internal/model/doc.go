// Package model defines domain data structures shared across the app: tracked
// tasks, their status enum, and the persisted history records. Structures are
// plain values so they can be copied out of stores and encoded as JSON.
package model
