package services

import (
	"errors"
	"fmt"
	"strings"

	"pharmacare_backend/internal/ai"
	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/repositories"
	"pharmacare_backend/pkg/utils"
)

// AIService defines the assistant features backed by a language model.
// All answers are advisory text; nothing here writes to the database.
type AIService interface {
	// CheckInteractions asks about known interactions between the given
	// catalog products.
	CheckInteractions(productIDs []int64) (string, error)
	// ParsePrescription extracts medicines and dosages from free-form
	// prescription text.
	ParsePrescription(text string) (string, error)
	// PredictDemand estimates restocking needs for a product from its
	// current stock position.
	PredictDemand(productID int64) (string, error)
}

type aiService struct {
	client        *ai.Client
	productRepo   repositories.ProductRepository
	inventoryRepo repositories.InventoryRepository
}

// NewAIService creates a new instance of AIService.
func NewAIService(client *ai.Client, productRepo repositories.ProductRepository, inventoryRepo repositories.InventoryRepository) AIService {
	return &aiService{client: client, productRepo: productRepo, inventoryRepo: inventoryRepo}
}

const pharmacistSystemPrompt = "You are a clinical pharmacy assistant. Answer concisely and flag anything " +
	"that needs a pharmacist's judgement. Never invent drug names or dosages."

func (s *aiService) CheckInteractions(productIDs []int64) (string, error) {
	if len(productIDs) < 2 {
		return "", fmt.Errorf("%w: at least two products are required for an interaction check", ErrValidation)
	}

	names := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		product, err := s.productRepo.GetProductByID(id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return "", fmt.Errorf("%w: product %d not found", ErrValidation, id)
			}
			return "", err
		}
		name := product.Name
		if product.GenericName != nil && *product.GenericName != "" {
			name = fmt.Sprintf("%s (%s)", product.Name, *product.GenericName)
		}
		names = append(names, name)
	}

	prompt := fmt.Sprintf("List known drug interactions between the following medicines and rate each "+
		"interaction's severity (none/minor/moderate/severe):\n- %s", strings.Join(names, "\n- "))
	return s.client.ChatCompletion(pharmacistSystemPrompt, prompt)
}

func (s *aiService) ParsePrescription(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: prescription text cannot be empty", ErrValidation)
	}

	prompt := fmt.Sprintf("Extract the prescribed medicines from the following prescription text. "+
		"For each, give the medicine name, strength, dosage instructions and duration as a JSON array "+
		"of objects with keys name, strength, dosage, duration. Text:\n%s", text)
	return s.client.ChatCompletion(pharmacistSystemPrompt, prompt)
}

func (s *aiService) PredictDemand(productID int64) (string, error) {
	product, err := s.productRepo.GetProductByID(productID)
	if err != nil {
		return "", err
	}

	lots, _, err := s.inventoryRepo.GetLots(models.LotFilters{ProductID: &productID, Page: 1, PageSize: 100})
	if err != nil {
		return "", err
	}

	var stock strings.Builder
	totalQuantity := 0
	for _, lot := range lots {
		totalQuantity += lot.Quantity
		expiry := "no expiry recorded"
		if lot.ExpiryDate != nil {
			expiry = lot.ExpiryDate.Format("2006-01-02")
		}
		fmt.Fprintf(&stock, "- lot %s: %d unit(s), reorder level %d, expiry %s\n",
			lot.BatchLabel, lot.Quantity, lot.ReorderLevel, expiry)
	}

	prompt := fmt.Sprintf("Product: %s (unit price %s)\nTotal units on hand: %d\nStock by lot:\n%s\n"+
		"Given typical retail pharmacy turnover for this kind of product, estimate how soon a "+
		"restock is needed and suggest an order quantity. Keep it to a short paragraph.",
		product.Name, utils.FormatMoney(product.Price), totalQuantity, stock.String())
	return s.client.ChatCompletion(pharmacistSystemPrompt, prompt)
}
