package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
const (
	userPKPrefix = "USER#"
	postPKPrefix = "POST#"
	linkPKPrefix = "LINK#"
	skMeta       = "META"

	// ownerIndex is the GSI keyed on ownerId, used for listing a user's links.
	ownerIndex = "ownerIndex"
)

// DynamoStore implements Store using AWS DynamoDB.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// Compile-time interface check.
var _ Store = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// --- Internal helpers ---

// putItem marshals a domain object and writes it to DynamoDB with PK and SK.
// The domain object should use dynamodbav:"-" for the field derived from PK.
func (s *DynamoStore) putItem(ctx context.Context, pk string, data interface{}) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: skMeta}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s: %w", pk, err)
	}
	return nil
}

// getItem reads a single item from DynamoDB and unmarshals it into out.
// Returns false if the item does not exist (out is not modified).
func (s *DynamoStore) getItem(ctx context.Context, pk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s: %w", pk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s: %w", pk, err)
	}
	return true, nil
}

// --- Identity operations ---

// identityUpdate builds the merge UpdateItem expression for an identity:
// only non-empty fields are SET, so unrelated stored attributes survive.
func identityUpdate(identity *Identity) (expr string, names map[string]string, values map[string]types.AttributeValue) {
	sets := []string{"#u = :u"}
	names = map[string]string{"#u": "updatedAt"}
	values = map[string]types.AttributeValue{
		":u": &types.AttributeValueMemberN{Value: strconv.FormatInt(identity.UpdatedAt, 10)},
	}

	if identity.Username != "" {
		sets = append(sets, "#n = :n")
		names["#n"] = "username"
		values[":n"] = &types.AttributeValueMemberS{Value: identity.Username}
	}
	if identity.AccessToken != "" {
		sets = append(sets, "#t = :t")
		names["#t"] = "accessToken"
		values[":t"] = &types.AttributeValueMemberS{Value: identity.AccessToken}
	}
	if identity.TokenExpiresAt != 0 {
		sets = append(sets, "#e = :e")
		names["#e"] = "tokenExpiresAt"
		values[":e"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(identity.TokenExpiresAt, 10)}
	}

	return "SET " + strings.Join(sets, ", "), names, values
}

func (s *DynamoStore) UpsertIdentity(ctx context.Context, identity *Identity) error {
	if identity.UpdatedAt == 0 {
		identity.UpdatedAt = time.Now().Unix()
	}

	// UpdateItem creates the item when absent, so a single call gives
	// upsert-with-merge.
	expr, names, values := identityUpdate(identity)
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPKPrefix + identity.ExternalID},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("upsert identity %s: %w", identity.ExternalID, err)
	}

	log.Debug().Str("externalId", identity.ExternalID).Str("username", identity.Username).Msg("Identity persisted")
	return nil
}

func (s *DynamoStore) GetIdentity(ctx context.Context, externalID string) (*Identity, error) {
	var identity Identity
	found, err := s.getItem(ctx, userPKPrefix+externalID, &identity)
	if err != nil {
		return nil, fmt.Errorf("get identity %s: %w", externalID, err)
	}
	if !found {
		return nil, nil
	}

	identity.ExternalID = externalID
	return &identity, nil
}

// --- Tracked post operations ---

func (s *DynamoStore) PutPost(ctx context.Context, post *Post) error {
	if post.SavedAt == 0 {
		post.SavedAt = time.Now().Unix()
	}

	if err := s.putItem(ctx, postPKPrefix+post.MediaID, post); err != nil {
		return fmt.Errorf("put post %s: %w", post.MediaID, err)
	}

	log.Debug().Str("mediaId", post.MediaID).Str("ownerId", post.OwnerID).Msg("Tracked post persisted")
	return nil
}

func (s *DynamoStore) GetPost(ctx context.Context, mediaID string) (*Post, error) {
	var post Post
	found, err := s.getItem(ctx, postPKPrefix+mediaID, &post)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", mediaID, err)
	}
	if !found {
		return nil, nil
	}

	post.MediaID = mediaID
	return &post, nil
}

// --- Short link operations ---

func (s *DynamoStore) PutLink(ctx context.Context, link *Link) error {
	if link.CreatedAt == 0 {
		link.CreatedAt = time.Now().Unix()
	}

	if err := s.putItem(ctx, linkPKPrefix+link.Code, link); err != nil {
		return fmt.Errorf("put link %s: %w", link.Code, err)
	}

	log.Debug().Str("code", link.Code).Str("ownerId", link.OwnerID).Msg("Short link persisted")
	return nil
}

func (s *DynamoStore) GetLink(ctx context.Context, code string) (*Link, error) {
	var link Link
	found, err := s.getItem(ctx, linkPKPrefix+code, &link)
	if err != nil {
		return nil, fmt.Errorf("get link %s: %w", code, err)
	}
	if !found {
		return nil, nil
	}

	link.Code = code
	return &link, nil
}

func (s *DynamoStore) LinksByOwner(ctx context.Context, ownerID string) ([]*Link, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String(ownerIndex),
		KeyConditionExpression: aws.String("ownerId = :o"),
		// The owner index also covers tracked posts; keep only links.
		FilterExpression: aws.String("begins_with(PK, :linkPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o":          &types.AttributeValueMemberS{Value: ownerID},
			":linkPrefix": &types.AttributeValueMemberS{Value: linkPKPrefix},
		},
	}

	var links []*Link

	// Handle pagination — DynamoDB returns up to 1MB per Query call.
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query links for owner %s: %w", ownerID, err)
		}

		for _, item := range result.Items {
			var link Link
			if err := attributevalue.UnmarshalMap(item, &link); err != nil {
				log.Warn().Err(err).Str("ownerId", ownerID).Msg("Failed to unmarshal link, skipping")
				continue
			}

			// Extract the code from PK: "LINK#abc123" → "abc123"
			if pkAttr, ok := item["PK"].(*types.AttributeValueMemberS); ok {
				link.Code = strings.TrimPrefix(pkAttr.Value, linkPKPrefix)
			}

			links = append(links, &link)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return links, nil
}

func (s *DynamoStore) RecordClick(ctx context.Context, code string) error {
	// ADD keeps the counter monotonic under concurrent resolutions; the
	// condition stops a click on a just-deleted code from materialising a
	// dangling item.
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: linkPKPrefix + code},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:    aws.String("ADD clicks :one SET lastAccessed = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Unix(), 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("record click for %s: %w", code, err)
	}

	log.Debug().Str("code", code).Msg("Click recorded")
	return nil
}
