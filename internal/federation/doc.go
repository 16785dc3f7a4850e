// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package federation verifies third-party OAuth2 credentials and maps the
// provider's answer to a Profile.
package federation
