// Package dispatch decides, per form submission, whether a contact is
// synced to ActiveCampaign right away or parked as a delayed transfer, and
// completes delayed transfers when their approval link is opened.
//
// A submission runs through a fixed pipeline of steps (strip internal
// fields, resolve the form config, map the contact, generate a token).
// Each step reads and writes only the per-request state, so nothing is
// shared between the submission and the later approval.
package dispatch
