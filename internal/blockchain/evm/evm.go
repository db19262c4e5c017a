// internal/blockchain/evm/evm.go
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainmart/chainmart-backend/internal/blockchain"
)

// Minimal view surface of the marketplace contracts. The network marketplace
// contract resolves a seller marketplace's deployed address; the seller
// marketplace contract exposes order records keyed by order id.
const marketplaceABI = `[
	{
		"name": "sellerMarketplaceAddress",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "sellerId", "type": "bytes16"},
			{"name": "sellerMarketplaceId", "type": "bytes16"}
		],
		"outputs": [{"name": "", "type": "address"}]
	},
	{
		"name": "orders",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "orderId", "type": "bytes16"}],
		"outputs": [
			{"name": "buyer", "type": "address"},
			{"name": "price", "type": "uint256"},
			{"name": "paymentContract", "type": "address"}
		]
	}
]`

var (
	parsedABI     abi.ABI
	transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

func init() {
	var err error
	parsedABI, err = abi.JSON(strings.NewReader(marketplaceABI))
	if err != nil {
		panic(fmt.Sprintf("invalid marketplace ABI: %v", err))
	}
}

// Client implements blockchain.ChainReader and blockchain.ContractStateClient
// for EVM-family networks over a JSON-RPC endpoint.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	signer  types.Signer
}

func NewClient(rpcURL string, chainID int64) (*Client, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint for chain %d: %w", chainID, err)
	}

	id := big.NewInt(chainID)
	return &Client{
		eth:     eth,
		chainID: id,
		signer:  types.LatestSignerForChainID(id),
	}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// GetTransactions fetches the outcome of each hash. Hashes the node does not
// know yet are omitted from the result; the caller treats them as still
// unresolved.
func (c *Client) GetTransactions(ctx context.Context, contractAddress string, hashes []string) ([]blockchain.TransactionResult, error) {
	results := make([]blockchain.TransactionResult, 0, len(hashes))

	for _, hash := range hashes {
		result, err := c.getTransaction(ctx, common.HexToHash(hash))
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to fetch transaction %s: %w", hash, err)
		}
		results = append(results, *result)
	}

	return results, nil
}

func (c *Client) getTransaction(ctx context.Context, hash common.Hash) (*blockchain.TransactionResult, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}

	tx, _, err := c.eth.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	sender, err := types.Sender(c.signer, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover sender: %w", err)
	}

	header, err := c.eth.HeaderByHash(ctx, receipt.BlockHash)
	if err != nil {
		return nil, err
	}

	gasUsed := new(big.Int).SetUint64(receipt.GasUsed)
	fee := new(big.Int).Mul(gasUsed, receipt.EffectiveGasPrice)

	result := &blockchain.TransactionResult{
		Hash:          hash.Hex(),
		SenderAddress: sender.Hex(),
		AmountPaid:    decimal.NewFromBigInt(tx.Value(), 0),
		Success:       receipt.Status == types.ReceiptStatusSuccessful,
		Timestamp:     time.Unix(int64(header.Time), 0).UTC(),
		Gas:           int64(receipt.GasUsed),
		GasValue:      decimal.NewFromBigInt(fee, 0),
	}

	if !result.Success {
		result.Error = "transaction reverted"
	}

	// ERC20 payments surface as a Transfer event; native payments ride on
	// the transaction value.
	for _, log := range receipt.Logs {
		if len(log.Topics) == 3 && log.Topics[0] == transferTopic && len(log.Data) == 32 {
			token := log.Address.Hex()
			result.TokenAddress = &token
			result.AmountPaid = decimal.NewFromBigInt(new(big.Int).SetBytes(log.Data), 0)
			break
		}
	}

	return result, nil
}

// GetSellerMarketplaceAddress reads the registered address for one seller
// marketplace from the network marketplace contract. Returns an empty string
// when the contract has no registration.
func (c *Client) GetSellerMarketplaceAddress(ctx context.Context, marketplaceContract string, sellerID, sellerMarketplaceID uuid.UUID) (string, error) {
	data, err := parsedABI.Pack("sellerMarketplaceAddress", [16]byte(sellerID), [16]byte(sellerMarketplaceID))
	if err != nil {
		return "", fmt.Errorf("failed to pack sellerMarketplaceAddress call: %w", err)
	}

	output, err := c.call(ctx, marketplaceContract, data)
	if err != nil {
		return "", err
	}

	values, err := parsedABI.Unpack("sellerMarketplaceAddress", output)
	if err != nil {
		return "", fmt.Errorf("failed to unpack sellerMarketplaceAddress result: %w", err)
	}

	address := values[0].(common.Address)
	if address == (common.Address{}) {
		return "", nil
	}
	return address.Hex(), nil
}

// GetOrder reads an order record from a seller marketplace contract. Returns
// nil when the order id is unknown to the contract.
func (c *Client) GetOrder(ctx context.Context, sellerMarketplaceContract string, orderID uuid.UUID) (*blockchain.OnchainOrder, error) {
	data, err := parsedABI.Pack("orders", [16]byte(orderID))
	if err != nil {
		return nil, fmt.Errorf("failed to pack orders call: %w", err)
	}

	output, err := c.call(ctx, sellerMarketplaceContract, data)
	if err != nil {
		return nil, err
	}

	values, err := parsedABI.Unpack("orders", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack orders result: %w", err)
	}

	buyer := values[0].(common.Address)
	if buyer == (common.Address{}) {
		return nil, nil
	}

	price := values[1].(*big.Int)
	paymentContract := values[2].(common.Address)

	order := &blockchain.OnchainOrder{
		BuyerAddress: buyer.Hex(),
		Price:        decimal.NewFromBigInt(price, 0),
	}
	if paymentContract != (common.Address{}) {
		order.PaymentContract = paymentContract.Hex()
	}
	return order, nil
}

func (c *Client) call(ctx context.Context, contract string, data []byte) ([]byte, error) {
	to := common.HexToAddress(contract)
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}
