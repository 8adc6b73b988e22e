/*
Copyright 2025 Ondo Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RecurringExternalIDPrefix marks external ids minted by the recurring-rule
// collaborator (shape: rule-{ruleId}-{date}). Rows carrying these ids are
// never considered transfer candidates unless that collaborator re-flags them.
const RecurringExternalIDPrefix = "rule-"

// GenerateUUIDWithSuffix creates a new UUID prefixed with the module name,
// e.g. "job_5f8a...". Used for all externally visible identifiers.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// IsRecurringArtifact reports whether an external id was minted by the
// recurring-occurrence collaborator.
func IsRecurringArtifact(externalID string) bool {
	return strings.HasPrefix(externalID, RecurringExternalIDPrefix)
}
