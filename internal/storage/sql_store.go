// File: internal/storage/sql_store.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/error-tracker/internal/models"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// defaultListLimit caps unbounded list queries.
const defaultListLimit = 100

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	name     string
	rebind   bool   // rewrite ? placeholders to $1..$n
	least    string // two-argument minimum function
	greatest string // two-argument maximum function
	dateExpr string // expression yielding YYYY-MM-DD from the timestamp column
}

// sqlStore implements the Storage queries shared by both drivers.
// Driver-specific concerns (connection setup, migrations) live in the
// embedding types.
type sqlStore struct {
	db      *sql.DB
	config  *StorageConfig
	logger  *logrus.Logger
	dialect dialect
}

// rebind rewrites ? placeholders for drivers that use numbered parameters.
func (s *sqlStore) rebind(query string) string {
	if !s.dialect.rebind {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// wrapErr maps low-level database errors into the application taxonomy.
func (s *sqlStore) wrapErr(message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return utils.NewAppError(utils.ErrCodeStorageTimeout, message, err.Error())
	}
	return utils.NewAppError(utils.ErrCodeDatabase, message, err.Error())
}

// Ping checks database connectivity
func (s *sqlStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("Database connection closed")
		return err
	}
	return nil
}

// nullable helpers

func nullStr(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Error event operations

const errorColumns = `id, group_id, message, error_type, severity, source, stack_trace,
	endpoint, method, status_code, user_id, ip_address, user_agent, metadata,
	status, assigned_to, notes, timestamp, resolved_at`

// SaveError persists a new error event row
func (s *sqlStore) SaveError(ctx context.Context, event *models.ErrorEvent) error {
	var metadataJSON interface{}
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal event metadata", err.Error())
		}
		metadataJSON = string(raw)
	}

	query := s.rebind(`
		INSERT INTO error_events (` + errorColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		event.ID, nullStr(event.GroupID), event.Message, event.ErrorType, event.Severity,
		event.Source, nullStr(event.StackTrace), nullStr(event.Endpoint), nullStr(event.Method),
		nullInt(event.StatusCode), nullStr(event.UserID), nullStr(event.IPAddress),
		nullStr(event.UserAgent), metadataJSON, event.Status, nullStr(event.AssignedTo),
		nullStr(event.Notes), event.Timestamp, nullTime(event.ResolvedAt))

	if err != nil {
		return s.wrapErr("Failed to save error event", err)
	}
	return nil
}

// scanError scans one error event row
func scanError(row interface{ Scan(...interface{}) error }) (*models.ErrorEvent, error) {
	var (
		event        models.ErrorEvent
		groupID      sql.NullString
		stackTrace   sql.NullString
		endpoint     sql.NullString
		method       sql.NullString
		statusCode   sql.NullInt64
		userID       sql.NullString
		ipAddress    sql.NullString
		userAgent    sql.NullString
		metadataJSON sql.NullString
		assignedTo   sql.NullString
		notes        sql.NullString
		resolvedAt   sql.NullTime
	)

	err := row.Scan(&event.ID, &groupID, &event.Message, &event.ErrorType, &event.Severity,
		&event.Source, &stackTrace, &endpoint, &method, &statusCode, &userID, &ipAddress,
		&userAgent, &metadataJSON, &event.Status, &assignedTo, &notes, &event.Timestamp, &resolvedAt)
	if err != nil {
		return nil, err
	}

	event.GroupID = groupID.String
	event.StackTrace = stackTrace.String
	event.Endpoint = endpoint.String
	event.Method = method.String
	event.UserID = userID.String
	event.IPAddress = ipAddress.String
	event.UserAgent = userAgent.String
	event.AssignedTo = assignedTo.String
	event.Notes = notes.String

	if statusCode.Valid {
		code := int(statusCode.Int64)
		event.StatusCode = &code
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		event.ResolvedAt = &t
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &event.Metadata); err != nil {
			return nil, err
		}
	}

	return &event, nil
}

// GetError retrieves a single error event by ID
func (s *sqlStore) GetError(ctx context.Context, id string) (*models.ErrorEvent, error) {
	query := s.rebind(`SELECT ` + errorColumns + ` FROM error_events WHERE id = ?`)

	event, err := scanError(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewAppError(utils.ErrCodeNotFound, "Error event not found", id)
		}
		return nil, s.wrapErr("Failed to get error event", err)
	}
	return event, nil
}

// buildErrorFilter builds the WHERE clause for error event queries
func buildErrorFilter(filter models.ErrorFilter) (string, []interface{}) {
	clauses := []string{"1=1"}
	args := []interface{}{}

	if filter.ErrorType != nil {
		clauses = append(clauses, "error_type = ?")
		args = append(args, *filter.ErrorType)
	}
	if filter.Severity != nil {
		clauses = append(clauses, "severity = ?")
		args = append(args, *filter.Severity)
	}
	if filter.Source != nil {
		clauses = append(clauses, "source = ?")
		args = append(args, *filter.Source)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.GroupID != nil {
		clauses = append(clauses, "group_id = ?")
		args = append(args, *filter.GroupID)
	}
	if filter.Search != nil && *filter.Search != "" {
		clauses = append(clauses, "(message LIKE ? OR stack_trace LIKE ?)")
		pattern := "%" + *filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.StartDate != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, *filter.EndDate)
	}

	return strings.Join(clauses, " AND "), args
}

// GetErrors retrieves error events matching the filter
func (s *sqlStore) GetErrors(ctx context.Context, filter models.ErrorFilter) ([]*models.ErrorEvent, error) {
	where, args := buildErrorFilter(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, filter.Skip)

	query := s.rebind(`SELECT ` + errorColumns + ` FROM error_events WHERE ` + where +
		` ORDER BY timestamp DESC LIMIT ? OFFSET ?`)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrapErr("Failed to query error events", err)
	}
	defer rows.Close()

	events := []*models.ErrorEvent{}
	for rows.Next() {
		event, err := scanError(rows)
		if err != nil {
			return nil, s.wrapErr("Failed to scan error event", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountErrors counts error events matching the filter
func (s *sqlStore) CountErrors(ctx context.Context, filter models.ErrorFilter) (int64, error) {
	where, args := buildErrorFilter(filter)
	query := s.rebind(`SELECT COUNT(*) FROM error_events WHERE ` + where)

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, s.wrapErr("Failed to count error events", err)
	}
	return count, nil
}

// UpdateError persists the mutable fields of an error event
func (s *sqlStore) UpdateError(ctx context.Context, event *models.ErrorEvent) error {
	query := s.rebind(`
		UPDATE error_events
		SET status = ?, assigned_to = ?, notes = ?, resolved_at = ?
		WHERE id = ?
	`)

	result, err := s.db.ExecContext(ctx, query,
		event.Status, nullStr(event.AssignedTo), nullStr(event.Notes),
		nullTime(event.ResolvedAt), event.ID)
	if err != nil {
		return s.wrapErr("Failed to update error event", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error event not found", event.ID)
	}
	return nil
}

// DeleteError deletes an error event
func (s *sqlStore) DeleteError(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM error_events WHERE id = ?`), id)
	if err != nil {
		return s.wrapErr("Failed to delete error event", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error event not found", id)
	}
	return nil
}

// Group operations

const groupColumns = `id, fingerprint, error_type, severity, source, message_pattern,
	status, assigned_to, notes, total_occurrences, first_seen, last_seen`

// scanGroup scans one error group row
func scanGroup(row interface{ Scan(...interface{}) error }) (*models.ErrorGroup, error) {
	var (
		group      models.ErrorGroup
		assignedTo sql.NullString
		notes      sql.NullString
	)

	err := row.Scan(&group.ID, &group.Fingerprint, &group.ErrorType, &group.Severity,
		&group.Source, &group.MessagePattern, &group.Status, &assignedTo, &notes,
		&group.TotalOccurrences, &group.FirstSeen, &group.LastSeen)
	if err != nil {
		return nil, err
	}

	group.AssignedTo = assignedTo.String
	group.Notes = notes.String
	return &group, nil
}

// GetGroup retrieves a single group by ID
func (s *sqlStore) GetGroup(ctx context.Context, id string) (*models.ErrorGroup, error) {
	query := s.rebind(`SELECT ` + groupColumns + ` FROM error_groups WHERE id = ?`)

	group, err := scanGroup(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", id)
		}
		return nil, s.wrapErr("Failed to get error group", err)
	}
	return group, nil
}

// GetGroupByFingerprint retrieves a group by its fingerprint
func (s *sqlStore) GetGroupByFingerprint(ctx context.Context, fingerprint string) (*models.ErrorGroup, error) {
	query := s.rebind(`SELECT ` + groupColumns + ` FROM error_groups WHERE fingerprint = ?`)

	group, err := scanGroup(s.db.QueryRowContext(ctx, query, fingerprint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", fingerprint)
		}
		return nil, s.wrapErr("Failed to get error group by fingerprint", err)
	}
	return group, nil
}

// InsertGroup inserts a new group. The fingerprint unique index arbitrates
// concurrent inserts: the loser gets a CONFLICT_ERROR and must re-read.
func (s *sqlStore) InsertGroup(ctx context.Context, group *models.ErrorGroup) error {
	query := s.rebind(`
		INSERT INTO error_groups (` + groupColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO NOTHING
	`)

	result, err := s.db.ExecContext(ctx, query,
		group.ID, group.Fingerprint, group.ErrorType, group.Severity, group.Source,
		group.MessagePattern, group.Status, nullStr(group.AssignedTo), nullStr(group.Notes),
		group.TotalOccurrences, group.FirstSeen, group.LastSeen)
	if err != nil {
		return s.wrapErr("Failed to insert error group", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeConflict, "Fingerprint already owned by another group", group.Fingerprint)
	}
	return nil
}

// GetGroups retrieves groups matching the filter, most recently seen first
func (s *sqlStore) GetGroups(ctx context.Context, filter models.GroupFilter) ([]*models.ErrorGroup, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}

	if filter.ErrorType != nil {
		clauses = append(clauses, "error_type = ?")
		args = append(args, *filter.ErrorType)
	}
	if filter.Severity != nil {
		clauses = append(clauses, "severity = ?")
		args = append(args, *filter.Severity)
	}
	if filter.Source != nil {
		clauses = append(clauses, "source = ?")
		args = append(args, *filter.Source)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *filter.Status)
	}

	query := s.rebind(`SELECT ` + groupColumns + ` FROM error_groups WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY last_seen DESC`)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrapErr("Failed to query error groups", err)
	}
	defer rows.Close()

	groups := []*models.ErrorGroup{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, s.wrapErr("Failed to scan error group", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// UpdateGroup persists the mutable fields of a group
func (s *sqlStore) UpdateGroup(ctx context.Context, group *models.ErrorGroup) error {
	query := s.rebind(`
		UPDATE error_groups
		SET status = ?, assigned_to = ?, notes = ?
		WHERE id = ?
	`)

	result, err := s.db.ExecContext(ctx, query,
		group.Status, nullStr(group.AssignedTo), nullStr(group.Notes), group.ID)
	if err != nil {
		return s.wrapErr("Failed to update error group", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", group.ID)
	}
	return nil
}

// DeleteGroup deletes a group and its member events in one transaction.
// The explicit member delete keeps cascade behavior identical across
// drivers regardless of foreign-key enforcement settings.
func (s *sqlStore) DeleteGroup(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrapErr("Failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM error_events WHERE group_id = ?`), id); err != nil {
		return s.wrapErr("Failed to delete group member events", err)
	}

	result, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM error_groups WHERE id = ?`), id)
	if err != nil {
		return s.wrapErr("Failed to delete error group", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", id)
	}

	if err := tx.Commit(); err != nil {
		return s.wrapErr("Failed to commit transaction", err)
	}
	return nil
}

// ApplyGroupOccurrence folds one occurrence into a group's rollup counters
// in a single atomic statement: the occurrence count grows monotonically,
// first_seen only lowers, last_seen only raises, and severity keeps the
// most severe value ever observed.
func (s *sqlStore) ApplyGroupOccurrence(ctx context.Context, groupID string, occurredAt time.Time, severity models.Severity) error {
	query := s.rebind(fmt.Sprintf(`
		UPDATE error_groups
		SET total_occurrences = total_occurrences + 1,
		    first_seen = %s(first_seen, ?),
		    last_seen = %s(last_seen, ?),
		    severity = CASE WHEN ? > (CASE severity
		        WHEN 'LOW' THEN 0 WHEN 'MEDIUM' THEN 1 WHEN 'HIGH' THEN 2 WHEN 'CRITICAL' THEN 3
		        ELSE -1 END)
		      THEN ? ELSE severity END
		WHERE id = ?
	`, s.dialect.least, s.dialect.greatest))

	result, err := s.db.ExecContext(ctx, query,
		occurredAt, occurredAt, severity.Rank(), severity, groupID)
	if err != nil {
		return s.wrapErr("Failed to apply group occurrence", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Error group not found", groupID)
	}
	return nil
}

// GetRecentGroupErrors retrieves the newest member events of a group
func (s *sqlStore) GetRecentGroupErrors(ctx context.Context, groupID string, limit int) ([]*models.ErrorEvent, error) {
	gid := groupID
	return s.GetErrors(ctx, models.ErrorFilter{GroupID: &gid, Limit: limit})
}

// Alert rule operations

const ruleColumns = `id, name, description, condition, error_type, severity, source,
	condition_params, notification_channels, notification_config, cooldown_minutes,
	is_active, last_triggered, created_at, updated_at`

// ruleJSONFields serializes the free-form rule documents for storage
func ruleJSONFields(rule *models.AlertRule) (params, channels, config interface{}, err error) {
	if rule.ConditionParams != nil {
		raw, merr := json.Marshal(rule.ConditionParams)
		if merr != nil {
			return nil, nil, nil, merr
		}
		params = string(raw)
	}

	raw, merr := json.Marshal(rule.NotificationChannels)
	if merr != nil {
		return nil, nil, nil, merr
	}
	channels = string(raw)

	if rule.NotificationConfig != nil {
		raw, merr := json.Marshal(rule.NotificationConfig)
		if merr != nil {
			return nil, nil, nil, merr
		}
		config = string(raw)
	}
	return params, channels, config, nil
}

// scanRule scans one alert rule row
func scanRule(row interface{ Scan(...interface{}) error }) (*models.AlertRule, error) {
	var (
		rule          models.AlertRule
		description   sql.NullString
		errorType     sql.NullString
		severity      sql.NullString
		source        sql.NullString
		paramsJSON    sql.NullString
		channelsJSON  string
		configJSON    sql.NullString
		lastTriggered sql.NullTime
	)

	err := row.Scan(&rule.ID, &rule.Name, &description, &rule.Condition, &errorType,
		&severity, &source, &paramsJSON, &channelsJSON, &configJSON, &rule.CooldownMinutes,
		&rule.IsActive, &lastTriggered, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rule.Description = description.String
	if errorType.Valid {
		t := models.ErrorType(errorType.String)
		rule.ErrorType = &t
	}
	if severity.Valid {
		sev := models.Severity(severity.String)
		rule.Severity = &sev
	}
	if source.Valid {
		src := source.String
		rule.Source = &src
	}
	if paramsJSON.Valid && paramsJSON.String != "" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &rule.ConditionParams); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal([]byte(channelsJSON), &rule.NotificationChannels); err != nil {
		return nil, err
	}
	if configJSON.Valid && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &rule.NotificationConfig); err != nil {
			return nil, err
		}
	}
	if lastTriggered.Valid {
		t := lastTriggered.Time
		rule.LastTriggered = &t
	}

	return &rule, nil
}

func rulePtrStr(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// SaveRule persists a new alert rule
func (s *sqlStore) SaveRule(ctx context.Context, rule *models.AlertRule) error {
	params, channels, config, err := ruleJSONFields(rule)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal rule fields", err.Error())
	}

	var errType, severity interface{}
	if rule.ErrorType != nil {
		errType = *rule.ErrorType
	}
	if rule.Severity != nil {
		severity = *rule.Severity
	}

	query := s.rebind(`
		INSERT INTO alert_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = s.db.ExecContext(ctx, query,
		rule.ID, rule.Name, nullStr(rule.Description), rule.Condition, errType, severity,
		rulePtrStr(rule.Source), params, channels, config, rule.CooldownMinutes,
		rule.IsActive, nullTime(rule.LastTriggered), rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return s.wrapErr("Failed to save alert rule", err)
	}
	return nil
}

// GetRule retrieves a single alert rule by ID
func (s *sqlStore) GetRule(ctx context.Context, id string) (*models.AlertRule, error) {
	query := s.rebind(`SELECT ` + ruleColumns + ` FROM alert_rules WHERE id = ?`)

	rule, err := scanRule(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewAppError(utils.ErrCodeNotFound, "Alert rule not found", id)
		}
		return nil, s.wrapErr("Failed to get alert rule", err)
	}
	return rule, nil
}

// GetRules retrieves alert rules, optionally only active ones
func (s *sqlStore) GetRules(ctx context.Context, activeOnly bool) ([]*models.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, s.rebind(query))
	if err != nil {
		return nil, s.wrapErr("Failed to query alert rules", err)
	}
	defer rows.Close()

	rules := []*models.AlertRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, s.wrapErr("Failed to scan alert rule", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// UpdateRule persists an alert rule's full editable state
func (s *sqlStore) UpdateRule(ctx context.Context, rule *models.AlertRule) error {
	params, channels, config, err := ruleJSONFields(rule)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal rule fields", err.Error())
	}

	var errType, severity interface{}
	if rule.ErrorType != nil {
		errType = *rule.ErrorType
	}
	if rule.Severity != nil {
		severity = *rule.Severity
	}

	query := s.rebind(`
		UPDATE alert_rules
		SET name = ?, description = ?, condition = ?, error_type = ?, severity = ?,
		    source = ?, condition_params = ?, notification_channels = ?,
		    notification_config = ?, cooldown_minutes = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := s.db.ExecContext(ctx, query,
		rule.Name, nullStr(rule.Description), rule.Condition, errType, severity,
		rulePtrStr(rule.Source), params, channels, config, rule.CooldownMinutes,
		rule.IsActive, rule.UpdatedAt, rule.ID)
	if err != nil {
		return s.wrapErr("Failed to update alert rule", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Alert rule not found", rule.ID)
	}
	return nil
}

// DeleteRule deletes an alert rule
func (s *sqlStore) DeleteRule(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM alert_rules WHERE id = ?`), id)
	if err != nil {
		return s.wrapErr("Failed to delete alert rule", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Alert rule not found", id)
	}
	return nil
}

// SetRuleLastTriggered records a rule firing timestamp
func (s *sqlStore) SetRuleLastTriggered(ctx context.Context, id string, at time.Time) error {
	query := s.rebind(`UPDATE alert_rules SET last_triggered = ?, updated_at = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query, at, at, id)
	if err != nil {
		return s.wrapErr("Failed to set rule last_triggered", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Alert rule not found", id)
	}
	return nil
}

// Notification log operations

// SaveNotificationLog persists one delivery attempt record
func (s *sqlStore) SaveNotificationLog(ctx context.Context, log *models.NotificationLog) error {
	query := s.rebind(`
		INSERT INTO notification_logs
		(id, alert_rule_id, channel, recipient, subject, message, sent_successfully, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.AlertRuleID, log.Channel, log.Recipient, log.Subject,
		log.Message, log.Sent, nullStr(log.Error), log.CreatedAt)
	if err != nil {
		return s.wrapErr("Failed to save notification log", err)
	}
	return nil
}

// GetNotificationLogs retrieves recent delivery attempts for a rule
func (s *sqlStore) GetNotificationLogs(ctx context.Context, ruleID string, limit int) ([]*models.NotificationLog, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := s.rebind(`
		SELECT id, alert_rule_id, channel, recipient, subject, message,
		       sent_successfully, error_message, created_at
		FROM notification_logs WHERE alert_rule_id = ?
		ORDER BY created_at DESC LIMIT ?
	`)

	rows, err := s.db.QueryContext(ctx, query, ruleID, limit)
	if err != nil {
		return nil, s.wrapErr("Failed to query notification logs", err)
	}
	defer rows.Close()

	logs := []*models.NotificationLog{}
	for rows.Next() {
		var (
			log      models.NotificationLog
			errorMsg sql.NullString
		)
		if err := rows.Scan(&log.ID, &log.AlertRuleID, &log.Channel, &log.Recipient,
			&log.Subject, &log.Message, &log.Sent, &errorMsg, &log.CreatedAt); err != nil {
			return nil, s.wrapErr("Failed to scan notification log", err)
		}
		log.Error = errorMsg.String
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}

// Statistics

// countBy runs a grouped count over error_events since the cutoff
func (s *sqlStore) countBy(ctx context.Context, column string, since time.Time) (map[string]int64, error) {
	query := s.rebind(fmt.Sprintf(
		`SELECT %s, COUNT(*) FROM error_events WHERE timestamp >= ? GROUP BY %s`, column, column))

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, s.wrapErr("Failed to query error statistics", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, s.wrapErr("Failed to scan error statistics", err)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// GetStatsSummary aggregates error counts over the trailing period
func (s *sqlStore) GetStatsSummary(ctx context.Context, days int) (*models.StatsSummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	summary := &models.StatsSummary{
		BySeverity: make(map[models.Severity]int64),
		ByStatus:   make(map[models.ErrorStatus]int64),
		ByType:     make(map[models.ErrorType]int64),
		BySource:   make(map[string]int64),
		PeriodDays: days,
	}

	// Zero-fill the enum dimensions so every bucket appears in the response.
	for _, sev := range models.Severities {
		summary.BySeverity[sev] = 0
	}
	for _, status := range models.ErrorStatuses {
		summary.ByStatus[status] = 0
	}
	for _, errType := range models.ErrorTypes {
		summary.ByType[errType] = 0
	}

	total, err := s.CountErrors(ctx, models.ErrorFilter{StartDate: &since})
	if err != nil {
		return nil, err
	}
	summary.TotalErrors = total

	bySeverity, err := s.countBy(ctx, "severity", since)
	if err != nil {
		return nil, err
	}
	for key, count := range bySeverity {
		summary.BySeverity[models.Severity(key)] = count
	}

	byStatus, err := s.countBy(ctx, "status", since)
	if err != nil {
		return nil, err
	}
	for key, count := range byStatus {
		summary.ByStatus[models.ErrorStatus(key)] = count
	}

	byType, err := s.countBy(ctx, "error_type", since)
	if err != nil {
		return nil, err
	}
	for key, count := range byType {
		summary.ByType[models.ErrorType(key)] = count
	}

	bySource, err := s.countBy(ctx, "source", since)
	if err != nil {
		return nil, err
	}
	summary.BySource = bySource

	if days > 0 {
		summary.ErrorRate = float64(total) / float64(days)
	}
	return summary, nil
}

// GetTimeline returns daily error counts over the trailing period
func (s *sqlStore) GetTimeline(ctx context.Context, days int) ([]models.TimelinePoint, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	query := s.rebind(fmt.Sprintf(`
		SELECT %s AS day, COUNT(*) FROM error_events
		WHERE timestamp >= ?
		GROUP BY day ORDER BY day
	`, s.dialect.dateExpr))

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, s.wrapErr("Failed to query error timeline", err)
	}
	defer rows.Close()

	timeline := []models.TimelinePoint{}
	for rows.Next() {
		var point models.TimelinePoint
		if err := rows.Scan(&point.Date, &point.Count); err != nil {
			return nil, s.wrapErr("Failed to scan timeline point", err)
		}
		timeline = append(timeline, point)
	}
	return timeline, rows.Err()
}

// GetTopErrors returns the most frequent errors over the trailing period
func (s *sqlStore) GetTopErrors(ctx context.Context, limit, days int) ([]models.TopError, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	if limit <= 0 {
		limit = 10
	}

	query := s.rebind(`
		SELECT message, error_type, COUNT(*) AS count FROM error_events
		WHERE timestamp >= ?
		GROUP BY message, error_type
		ORDER BY count DESC LIMIT ?
	`)

	rows, err := s.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, s.wrapErr("Failed to query top errors", err)
	}
	defer rows.Close()

	top := []models.TopError{}
	for rows.Next() {
		var entry models.TopError
		if err := rows.Scan(&entry.Message, &entry.ErrorType, &entry.Count); err != nil {
			return nil, s.wrapErr("Failed to scan top error", err)
		}
		top = append(top, entry)
	}
	return top, rows.Err()
}

// GetStorageStats returns table-level statistics
func (s *sqlStore) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM error_events`, &stats.TotalErrors},
		{`SELECT COUNT(*) FROM error_groups`, &stats.TotalGroups},
		{`SELECT COUNT(*) FROM alert_rules`, &stats.TotalRules},
		{`SELECT COUNT(*) FROM notification_logs`, &stats.TotalNotifications},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, s.wrapErr("Failed to query storage stats", err)
		}
	}

	var oldest, latest sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(timestamp), MAX(timestamp) FROM error_events`).Scan(&oldest, &latest)
	if err != nil {
		return nil, s.wrapErr("Failed to query storage stats", err)
	}
	if oldest.Valid {
		stats.OldestError = &oldest.Time
	}
	if latest.Valid {
		stats.LatestError = &latest.Time
	}
	return stats, nil
}
