package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	sqlToolName  = "run_readonly_sql"
	maxToolCalls = 5
	maxRows      = 200
)

var ErrWriteQuery = errors.New("security violation: modify operations are not allowed")

// AIService holds the Gemini client and the read-only database connection.
type AIService struct {
	Client    *genai.Client
	DB        *sql.DB
	ModelName string
}

// NewAIService initializes the Gemini client.
func NewAIService(ctx context.Context, apiKey, modelName string, dbReadOnly *sql.DB) (*AIService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &AIService{Client: client, DB: dbReadOnly, ModelName: modelName}, nil
}

func (s *AIService) Close() error {
	return s.Client.Close()
}

// GenerateResponse answers one question, letting the model run SELECTs
// against the read-only connection. It returns the answer and the total
// tokens the exchange used.
func (s *AIService) GenerateResponse(ctx context.Context, userMessage string, userRole string) (string, int, error) {
	model := s.Client.GenerativeModel(s.ModelName)

	model.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        sqlToolName,
			Description: "Executes a READ-ONLY SQL query (SELECT only) to answer questions.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: "The MySQL SELECT query to execute.",
					},
				},
				Required: []string{"query"},
			},
		}},
	}}

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(`
			You are the FoodHub back-office assistant. Role: %s.
			Access: MySQL database (%s).
			Schema: %s
			Rules: SELECT only. Be concise. Money columns are DECIMAL; report them with two decimals.
		`, userRole, sqlToolName, schemaDefinition))},
	}

	cs := model.StartChat()
	res, err := cs.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", 0, fmt.Errorf("error sending message: %w", err)
	}
	totalTokens := tokenCount(res, 0)

	for calls := 0; ; calls++ {
		if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
			return "No response.", totalTokens, nil
		}
		part := res.Candidates[0].Content.Parts[0]

		funcCall, ok := part.(genai.FunctionCall)
		if !ok {
			return fmt.Sprintf("%v", part), totalTokens, nil
		}
		if funcCall.Name != sqlToolName {
			return "", totalTokens, fmt.Errorf("unknown function: %s", funcCall.Name)
		}
		if calls >= maxToolCalls {
			return "", totalTokens, fmt.Errorf("assistant exceeded %d tool calls", maxToolCalls)
		}

		query, ok := funcCall.Args["query"].(string)
		if !ok {
			return "", totalTokens, fmt.Errorf("invalid query argument")
		}
		log.Printf("assistant running SQL: %s", query)

		sqlResult, sqlErr := s.runReadOnlyQuery(ctx, query)
		if sqlErr != nil {
			sqlResult = fmt.Sprintf("SQL Error: %v", sqlErr)
		}

		res, err = cs.SendMessage(ctx, genai.FunctionResponse{
			Name:     sqlToolName,
			Response: map[string]interface{}{"result": sqlResult},
		})
		if err != nil {
			return "", totalTokens, fmt.Errorf("tool response error: %w", err)
		}
		totalTokens = tokenCount(res, totalTokens)
	}
}

// tokenCount reads the cumulative usage, keeping prev when the response has none.
func tokenCount(res *genai.GenerateContentResponse, prev int) int {
	if res == nil || res.UsageMetadata == nil {
		return prev
	}
	return int(res.UsageMetadata.TotalTokenCount)
}

// IsReadOnlyQuery accepts a single SELECT (or WITH ... SELECT) statement.
func IsReadOnlyQuery(query string) bool {
	q := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(query), ";"))
	if strings.Contains(q, ";") {
		return false
	}
	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return false
	}
	for _, kw := range []string{"UPDATE ", "DELETE ", "DROP ", "INSERT ", "ALTER ", "TRUNCATE ", "GRANT ", " INTO OUTFILE", "FOR UPDATE"} {
		if strings.Contains(upper, kw) {
			return false
		}
	}
	return true
}

func (s *AIService) runReadOnlyQuery(ctx context.Context, query string) (string, error) {
	if !IsReadOnlyQuery(query) {
		return "", ErrWriteQuery
	}
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}
	tableData := []map[string]interface{}{}
	for rows.Next() && len(tableData) < maxRows {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return "", err
		}
		entry := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				entry[col] = string(b)
			} else {
				entry[col] = values[i]
			}
		}
		tableData = append(tableData, entry)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	jsonData, err := json.Marshal(tableData)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

const schemaDefinition = `
	- users (id, role [customer, owner, courier, supervisor, admin], email, full_name, phone_number, failed_attempts, locked_until, is_deactivated, last_login, created_at)
	- restaurants (id, owner_id, name, slug, city, is_open, is_verified, license_status, package_type [free, premium], package_expires_at, supervisor_id, delivery_fee)
	- orders (id, restaurant_id, customer_id, delivery_type [pickup, delivery], subtotal, delivery_fee, total, status [pending, accepted, preparing, ready, outForDelivery, delivered, cancelled], cancel_reason, commission_amount, net_amount, settled_at, created_at)
	- order_items (id, order_id, name, unit_price, quantity)
	- wallet_transactions (id, wallet_type [restaurant, supervisor, platform], wallet_owner_id, order_id, type [order_net, supervisor_commission, platform_commission, withdrawal, refund, adjustment], amount, balance_after, created_at)
	- withdrawal_requests (id, wallet_type, wallet_owner_id, requested_by, amount, status [pending, approved, rejected], rejection_reason, requested_at, processed_at)
	- package_requests (id, restaurant_id, status [pending, bank_sent, payment_sent, approved, rejected, expired], subscription_amount, subscription_duration, created_at, approved_at)
	- notifications (id, recipient_id, title, message, type, is_read, created_at)
	- audit_logs (id, action, performed_by, target_user_id, metadata, timestamp)
	- login_attempts (id, email, status [success, failed], ip, timestamp)
	`
