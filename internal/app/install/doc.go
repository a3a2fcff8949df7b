// SPDX-License-Identifier: MPL-2.0

// Package install sequences a set of mods against the shared file
// cache and flushes the combined edits to the output tree. It
// decouples CLI-layer orchestration from the per-mod runtime
// lifecycle and the skip-and-continue error policy.
package install
