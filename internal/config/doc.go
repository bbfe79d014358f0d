// Package config loads pacing profiles.
//
// A profile is a CUE file validated against an embedded schema (see
// schema.cue). Every field is optional; omitted delays take the standard
// values, so an empty file is the default profile.
//
//	speed: 2
//	delays: compare: 200
//	palette: neutral: "#dddddd"
package config
