// Package cli implements the lactl command-line interface.
//
// # Commands
//
// analyze - Classify ingestion and recommend a commitment tier:
//
//	lactl analyze [--region R] [--tag-key K --tag-value V] [--days 30] [--include-empty]
//
// provision - Create or adopt a dedicated cluster and link matching workspaces:
//
//	lactl provision --profile NAME [--dry-run] [--template FILE]
//	lactl provision --subscription S --resource-group G --name N --region R --capacity C
//
// link - Link matching workspaces to an existing cluster:
//
//	lactl link --cluster-id ID --region R [--tag-key K --tag-value V] [--dry-run]
//
// recommend, tiers and profiles work offline and never contact Azure.
//
// # Global Flags
//
//	--log-level      debug, info, warn or error (LACTL_LOG_LEVEL)
//	--database-url   PostgreSQL URL for run history (LACTL_DATABASE_URL)
//	--profiles-dir   Directory of cluster profiles (LACTL_PROFILES_DIR)
//	--tenant         Azure tenant the token must belong to (LACTL_TENANT_ID, AZURE_TENANT_ID)
//	--format, -t     Output format: json, yaml or table
//	--output, -o     Output file path (default: stdout)
package cli
