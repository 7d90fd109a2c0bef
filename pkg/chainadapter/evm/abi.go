package evm

// escrowFactoryABIJSON carries the two escrow-creation events and the
// addressOfEscrowSrc view function the adapter needs. It is a trimmed
// fragment of the real EscrowFactory ABI, not the full contract surface.
const escrowFactoryABIJSON = `[
	{
		"type": "event",
		"name": "SrcEscrowCreated",
		"anonymous": false,
		"inputs": [
			{"name": "orderHash", "type": "bytes32", "indexed": false},
			{"name": "hashlock", "type": "bytes32", "indexed": false},
			{"name": "maker", "type": "address", "indexed": false},
			{"name": "taker", "type": "address", "indexed": false},
			{"name": "token", "type": "address", "indexed": false},
			{"name": "amount", "type": "uint256", "indexed": false},
			{"name": "safetyDeposit", "type": "uint256", "indexed": false},
			{"name": "timelocks", "type": "uint256", "indexed": false},
			{"name": "dstMaker", "type": "address", "indexed": false},
			{"name": "dstAmount", "type": "uint256", "indexed": false},
			{"name": "dstToken", "type": "address", "indexed": false},
			{"name": "dstChainId", "type": "uint256", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "DstEscrowCreated",
		"anonymous": false,
		"inputs": [
			{"name": "escrow", "type": "address", "indexed": false},
			{"name": "hashlock", "type": "bytes32", "indexed": false},
			{"name": "taker", "type": "address", "indexed": false}
		]
	},
	{
		"type": "function",
		"name": "addressOfEscrowSrc",
		"stateMutability": "view",
		"inputs": [
			{
				"name": "immutables",
				"type": "tuple",
				"components": [
					{"name": "orderHash", "type": "bytes32"},
					{"name": "hashlock", "type": "bytes32"},
					{"name": "maker", "type": "address"},
					{"name": "taker", "type": "address"},
					{"name": "token", "type": "address"},
					{"name": "amount", "type": "uint256"},
					{"name": "safetyDeposit", "type": "uint256"},
					{"name": "timelocks", "type": "uint256"}
				]
			}
		],
		"outputs": [
			{"name": "", "type": "address"}
		]
	}
]`

// erc20ABIJSON carries the single read-only method the adapter calls.
const erc20ABIJSON = `[
	{
		"type": "function",
		"name": "balanceOf",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`
