/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	// Account queries
	queryUpsertAccount = `
		INSERT INTO users (user_id, username, first_name, last_name, join_date, last_activity)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			last_activity = excluded.last_activity`

	queryGetAccount = `
		SELECT user_id, username, first_name, last_name, balance, is_blocked, join_date, last_activity
		FROM users
		WHERE user_id = ?`

	queryFindByUsername = `
		SELECT user_id, username, first_name, last_name, balance, is_blocked, join_date, last_activity
		FROM users
		WHERE username = ?`

	queryTouchActivity = `
		UPDATE users SET last_activity = ? WHERE user_id = ?`

	querySetBlocked = `
		UPDATE users SET is_blocked = ? WHERE user_id = ?`

	queryIsBlocked = `
		SELECT is_blocked FROM users WHERE user_id = ?`

	queryGetBalance = `
		SELECT balance FROM users WHERE user_id = ?`

	queryActiveUserIDs = `
		SELECT user_id FROM users WHERE is_blocked = 0 ORDER BY user_id`

	queryCountAccounts = `
		SELECT COUNT(*) FROM users`

	queryAllBalances = `
		SELECT balance FROM users`

	// Ledger queries
	queryFindDuplicateRef = `
		SELECT id FROM transactions WHERE trx_id = ? LIMIT 1`

	queryUpdateBalance = `
		UPDATE users SET balance = ? WHERE user_id = ? AND balance = ?`

	queryInsertTransaction = `
		INSERT INTO transactions (user_id, tx_type, amount, trx_id, status, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	// Transaction log queries
	queryRecentTransactions = `
		SELECT id, user_id, tx_type, amount, trx_id, status, description, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id ASC
		LIMIT ?`

	queryFindByExternalRef = `
		SELECT id, user_id, tx_type, amount, trx_id, status, description, created_at
		FROM transactions
		WHERE trx_id = ?
		LIMIT 1`

	queryCompletedAmounts = `
		SELECT amount FROM transactions WHERE user_id = ? AND status = 'completed'`

	// Settings queries
	queryGetSetting = `
		SELECT value FROM settings WHERE key = ?`

	querySetSetting = `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	querySeedSetting = `
		INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`

	// Artifact queries
	queryInsertSignedArtifact = `
		INSERT INTO signed_apks (id, user_id, file_name, original_size, signed_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
)
