// Package models defines the domain types shared across the application:
// pages and their container/content variants, workspaces, access levels,
// change snapshots, and forest assembly from flat page lists.
package models
