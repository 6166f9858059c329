package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBaseModel_Deleted(t *testing.T) {
	c := Contact{Name: "Ana"}
	if c.Deleted() {
		t.Fatal("new contact should not be deleted")
	}
	c.HasDeleted = true
	if !c.Deleted() {
		t.Fatal("Deleted() = false after setting HasDeleted")
	}
}

func TestTableNames(t *testing.T) {
	if got := (Contact{}).TableName(); got != "contacts" {
		t.Errorf("Contact.TableName() = %q; want contacts", got)
	}
	if got := (Payment{}).TableName(); got != "payments" {
		t.Errorf("Payment.TableName() = %q; want payments", got)
	}
}

func TestPaymentJSON_CamelCaseFields(t *testing.T) {
	p := Payment{
		DocumentNumber:   "1020304050",
		PaymentReference: "REF-1",
		Amount:           decimal.RequireFromString("150000.50"),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payment: %v", err)
	}
	body := string(raw)
	for _, key := range []string{`"documentNumber"`, `"paymentReference"`, `"hasDeleted"`, `"createdAt"`} {
		if !strings.Contains(body, key) {
			t.Errorf("json should contain %s, got: %s", key, body)
		}
	}
}
